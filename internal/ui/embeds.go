package ui

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/repository"
	"github.com/lostisle/stationbot/internal/station"
	"github.com/lostisle/stationbot/internal/utils"
)

func ProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	dot := int(float64(width) * progress)
	if dot >= width {
		dot = width - 1
	}
	out := make([]rune, 0, width*2)
	for i := 0; i < width; i++ {
		if i == dot {
			out = append(out, '🔘')
		} else {
			out = append(out, '▬')
		}
	}
	return string(out)
}

func trackLine(t station.Track) string {
	if t.Artist == "" {
		return fmt.Sprintf("**%s**", utils.EscapeMd(t.Title))
	}
	return fmt.Sprintf("**%s**\n%s", utils.EscapeMd(t.Title), utils.EscapeMd(t.Artist))
}

func BuildNowPlayingEmbed(t station.Track, stationName string, elapsedSec int, paused bool) *discordgo.MessageEmbed {
	button := "⏹️"
	title := "Now Playing"
	color := 0x006400
	if paused {
		button = "▶️"
		title = "Paused"
		color = 0x8B0000
	}

	// Station playback has no fixed track length, so the bar just pulses
	// through a 30 second window.
	progress := float64(elapsedSec%30) / 30
	bar := ProgressBar(10, progress)

	desc := fmt.Sprintf("%s\n\n%s %s `[ %s ]`",
		trackLine(t), button, bar, utils.PrettyTime(elapsedSec),
	)

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Station: %s", stationName),
		},
	}
	if t.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Album", Value: utils.EscapeMd(t.Album), Inline: true,
		})
	}
	if t.CoverURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.CoverURL}
	}
	return embed
}

func BuildLoadingEmbed(t station.Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Loading",
		Description: trackLine(t),
		Color:       0x444444,
	}
}

func BuildHistoryEmbed(plays []repository.Play) *discordgo.MessageEmbed {
	if len(plays) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Recently Played",
			Description: "Nothing played yet",
			Color:       0x992222,
		}
	}
	desc := ""
	for i, p := range plays {
		line := utils.EscapeMd(p.Title)
		if p.Artist != "" {
			line += " · " + utils.EscapeMd(p.Artist)
		}
		desc += fmt.Sprintf("`%d.` %s\n", i+1, line)
	}
	return &discordgo.MessageEmbed{
		Title:       "Recently Played",
		Description: desc,
		Color:       0x006400,
	}
}

func BuildStationsEmbed(aliases []repository.StationAlias) *discordgo.MessageEmbed {
	if len(aliases) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Stations",
			Description: "No stations saved. Add one with `/stations add`.",
			Color:       0x992222,
		}
	}
	desc := ""
	for _, a := range aliases {
		desc += fmt.Sprintf("**%s** · `%s`\n", utils.EscapeMd(a.Name), a.StationID)
	}
	return &discordgo.MessageEmbed{
		Title:       "Stations",
		Description: desc,
		Color:       0x006400,
	}
}
