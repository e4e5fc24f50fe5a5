package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/config"
	"github.com/lostisle/stationbot/internal/discord"
	"github.com/lostisle/stationbot/internal/repository"
	"github.com/lostisle/stationbot/internal/spotify"
	"github.com/lostisle/stationbot/internal/station"
	"github.com/lostisle/stationbot/internal/stream"
	"github.com/lostisle/stationbot/internal/ui"
	"github.com/lostisle/stationbot/internal/utils"
)

type CommandHandler struct {
	cfg      *config.Config
	repo     *repository.Repo
	stations *repository.StationService
	src      *spotify.Source
	reg      *station.Registry
	resolver *stream.Resolver
}

func NewCommandHandler(cfg *config.Config, repo *repository.Repo, stations *repository.StationService, src *spotify.Source, reg *station.Registry, resolver *stream.Resolver) *CommandHandler {
	return &CommandHandler{cfg: cfg, repo: repo, stations: stations, src: src, reg: reg, resolver: resolver}
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string, guildID string) error {
	start := time.Now()
	slog.Info("registering application commands", "appID", appID, "guildID", guildID)

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Tune into a station",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "station", Description: "station name or reference (defaults to the guild station)", Type: discordgo.ApplicationCommandOptionString},
			},
		},
		{Name: "pause", Description: "Pause the current track"},
		{Name: "resume", Description: "Resume a paused track"},
		{Name: "next", Description: "Skip to the next track"},
		{Name: "previous", Description: "Go back to the previous track"},
		{Name: "stop", Description: "Stop playback and leave the voice channel"},
		{Name: "like", Description: "Like the current track"},
		{Name: "now-playing", Description: "Show the current track"},
		{
			Name:        "history",
			Description: "Show recently played tracks",
			Options: []*discordgo.ApplicationCommandOption{
				{Name: "limit", Description: "how many tracks to show [default: 10]", Type: discordgo.ApplicationCommandOptionInteger},
			},
		},
		{
			Name:        "stations",
			Description: "Manage saved stations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "save a station under a name",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
						{Name: "station", Description: "station reference (playlist/album/artist URL or id)", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "remove a saved station",
					Options: []*discordgo.ApplicationCommandOption{
						{Name: "name", Description: "name", Type: discordgo.ApplicationCommandOptionString, Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "list saved stations",
				},
			},
		},
		{
			Name:        "config",
			Description: "Configure bot settings",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "get", Description: "show settings"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-default-station", Description: "station used when /play has no argument", Options: []*discordgo.ApplicationCommandOption{
					{Name: "station", Description: "station name or reference", Type: discordgo.ApplicationCommandOptionString, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-announce-now-playing", Description: "announce tracks in the text channel", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set-leave-if-no-listeners", Description: "leave when no listeners", Options: []*discordgo.ApplicationCommandOption{
					{Name: "value", Description: "true/false", Type: discordgo.ApplicationCommandOptionBoolean, Required: true},
				}},
			},
		},
	}

	for _, c := range cmds {
		if _, err := s.ApplicationCommandCreate(appID, guildID, c); err != nil {
			slog.Error("failed to create application command", "guildID", guildID, "command", c.Name, "err", err)
			return err
		}
	}

	slog.Info("finished registering commands", "guildID", guildID, "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	slog.Debug("interaction", "guildID", i.GuildID, "userID", userIDOf(i), "command", data.Name)
	switch data.Name {
	case "play":
		h.cmdPlay(s, i)
	case "pause":
		h.cmdPause(s, i)
	case "resume":
		h.cmdResume(s, i)
	case "next":
		h.cmdNext(s, i)
	case "previous":
		h.cmdPrevious(s, i)
	case "stop":
		h.cmdStop(s, i)
	case "like":
		h.cmdLike(s, i)
	case "now-playing":
		h.cmdNowPlaying(s, i)
	case "history":
		h.cmdHistory(s, i)
	case "stations":
		h.cmdStations(s, i)
	case "config":
		h.cmdConfig(s, i)
	default:
		slog.Debug("unknown command", "name", data.Name, "guildID", i.GuildID)
	}
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := i.GuildID
	memberID := userIDOf(i)

	var stationArg string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "station" {
			stationArg = o.StringValue()
		}
	}

	chID, ok := userInVoice(s, guildID, memberID)
	if !ok {
		h.reply(s, i, "gotta be in a voice channel", true)
		return
	}

	ctx := context.Background()
	if _, err := h.repo.UpsertSettings(ctx, guildID); err != nil {
		slog.Warn("upsert settings failed", "guildID", guildID, "err", err)
	}
	set, err := h.repo.GetSettings(ctx, guildID)
	if err != nil {
		slog.Error("get settings failed", "guildID", guildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}

	name := strings.TrimSpace(stationArg)
	if name == "" {
		name = set.DefaultStation
	}
	if name == "" {
		name = h.cfg.DefaultStation
	}
	if name == "" {
		h.reply(s, i, "no station given and no default configured", true)
		return
	}
	stationRef := h.stations.Resolve(ctx, guildID, name)

	h.deferReply(s, i, false)

	transport := discord.NewTransport(s, h.resolver)
	notifier := ui.NewChannelNotifier(s, i.ChannelID, name, set.AnnounceNowPlaying)

	sess, err := h.reg.GetOrCreate(guildID, station.Params{
		ChannelID: chID,
		StationID: stationRef,
		UserID:    memberID,
		Transport: transport,
		Provider:  spotify.NewGuildProvider(h.src, h.repo, guildID),
		Notifier:  notifier,
		Policy:    station.DefaultRetryPolicy(),
		OnClose: func() {
			h.src.Reset(stationRef)
		},
	})
	if err != nil {
		if errors.Is(err, station.ErrAlreadyActive) {
			h.editReply(s, i, "already tuned in here, /stop first to switch stations")
			return
		}
		slog.Error("create session failed", "guildID", guildID, "err", err)
		h.editReply(s, i, "internal error")
		return
	}

	slog.Info("cmd play", "guildID", guildID, "userID", memberID, "station", stationRef)
	if err := sess.Start(); err != nil {
		slog.Warn("session start failed", "guildID", guildID, "station", stationRef, "err", err)
		h.editReply(s, i, "couldn't connect to the voice channel")
		return
	}
	h.editReply(s, i, fmt.Sprintf("tuned into **%s**", utils.EscapeMd(name)))
}

func (h *CommandHandler) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	if err := sess.Pause(); err != nil {
		h.reply(s, i, "nothing is playing", true)
		return
	}
	slog.Info("cmd pause", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "paused", false)
}

func (h *CommandHandler) cmdResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	if err := sess.Play(); err != nil {
		h.reply(s, i, "nothing is paused", true)
		return
	}
	slog.Info("cmd resume", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "resumed", false)
}

func (h *CommandHandler) cmdNext(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	if err := sess.Next(); err != nil {
		switch {
		case errors.Is(err, station.ErrExhausted):
			h.reply(s, i, "station is out of tracks, /stop to leave", true)
		case errors.Is(err, station.ErrBusy):
			h.reply(s, i, "still loading, hang on", true)
		default:
			h.reply(s, i, "can't skip right now", true)
		}
		return
	}
	slog.Info("cmd next", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "skipped", false)
}

func (h *CommandHandler) cmdPrevious(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	if err := sess.Previous(); err != nil {
		switch {
		case errors.Is(err, station.ErrNoHistory):
			h.reply(s, i, "no track to go back to", true)
		case errors.Is(err, station.ErrBusy):
			h.reply(s, i, "still loading, hang on", true)
		default:
			h.reply(s, i, "can't go back right now", true)
		}
		return
	}
	slog.Info("cmd previous", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "rewound", false)
}

func (h *CommandHandler) cmdStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	sess.Stop()
	slog.Info("cmd stop", "guildID", i.GuildID, "userID", userIDOf(i))
	h.reply(s, i, "stopped, see ya", false)
}

func (h *CommandHandler) cmdLike(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	if err := sess.Like(); err != nil {
		if errors.Is(err, station.ErrNoTrack) {
			h.reply(s, i, "nothing is playing", true)
			return
		}
		slog.Warn("like failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "couldn't save that like", true)
		return
	}
	cur, _ := sess.Current()
	h.reply(s, i, fmt.Sprintf("liked **%s**", utils.EscapeMd(cur.Title)), false)
}

func (h *CommandHandler) cmdNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sess, ok := h.reg.Get(i.GuildID)
	if !ok {
		h.reply(s, i, "not tuned in", true)
		return
	}
	cur, ok := sess.Current()
	if !ok {
		h.reply(s, i, "nothing is currently playing", true)
		return
	}
	embed := ui.BuildNowPlayingEmbed(cur, sess.StationID(), int(sess.Elapsed().Seconds()), sess.State() == station.StatePaused)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		slog.Warn("now-playing respond failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) cmdHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := 10
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "limit" {
			limit = int(o.IntValue())
		}
	}
	// Prefer the live session's ring; the persisted log covers the rest.
	var plays []repository.Play
	if sess, ok := h.reg.Get(i.GuildID); ok {
		ring := sess.HistoryTracks()
		for idx := len(ring) - 1; idx >= 0; idx-- { // newest first
			t := ring[idx]
			plays = append(plays, repository.Play{TrackID: t.ID, Title: t.Title, Artist: t.Artist})
		}
	}
	if len(plays) == 0 {
		var err error
		plays, err = h.repo.RecentPlays(context.Background(), i.GuildID, limit)
		if err != nil {
			slog.Error("recent plays failed", "guildID", i.GuildID, "err", err)
			h.reply(s, i, "internal error", true)
			return
		}
	} else if len(plays) > limit {
		plays = plays[:limit]
	}
	embed := ui.BuildHistoryEmbed(plays)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		slog.Warn("history respond failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) cmdStations(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	ctx := context.Background()

	switch sub.Name {
	case "add":
		var name, ref string
		for _, o := range sub.Options {
			switch o.Name {
			case "name":
				name = o.StringValue()
			case "station":
				ref = o.StringValue()
			}
		}
		if _, _, err := spotify.ParseStationRef(ref); err != nil {
			h.reply(s, i, "that doesn't look like a station reference", true)
			return
		}
		if err := h.stations.Create(ctx, i.GuildID, userIDOf(i), name, ref); err != nil {
			slog.Warn("station add failed", "guildID", i.GuildID, "name", name, "err", err)
			h.reply(s, i, "couldn't save it, name may already be taken", true)
			return
		}
		h.reply(s, i, fmt.Sprintf("saved **%s**", utils.EscapeMd(name)), false)

	case "remove":
		var name string
		for _, o := range sub.Options {
			if o.Name == "name" {
				name = o.StringValue()
			}
		}
		n, err := h.stations.Remove(ctx, i.GuildID, name)
		if err != nil {
			slog.Warn("station remove failed", "guildID", i.GuildID, "name", name, "err", err)
			h.reply(s, i, "internal error", true)
			return
		}
		if n == 0 {
			h.reply(s, i, "no station by that name", true)
			return
		}
		h.reply(s, i, fmt.Sprintf("removed **%s**", utils.EscapeMd(name)), false)

	case "list":
		aliases, err := h.stations.List(ctx, i.GuildID)
		if err != nil {
			slog.Warn("station list failed", "guildID", i.GuildID, "err", err)
			h.reply(s, i, "internal error", true)
			return
		}
		embed := ui.BuildStationsEmbed(aliases)
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		}); err != nil {
			slog.Warn("stations respond failed", "guildID", i.GuildID, "err", err)
		}
	}
}

func (h *CommandHandler) cmdConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	ctx := context.Background()

	set, err := h.repo.UpsertSettings(ctx, i.GuildID)
	if err != nil {
		slog.Error("settings load failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}

	switch sub.Name {
	case "get":
		def := set.DefaultStation
		if def == "" {
			def = "(unset)"
		}
		msg := fmt.Sprintf(
			"default station: %s\nannounce now playing: %t\nleave if no listeners: %t",
			def, set.AnnounceNowPlaying, set.LeaveIfNoListeners,
		)
		h.reply(s, i, msg, true)
		return

	case "set-default-station":
		for _, o := range sub.Options {
			if o.Name == "station" {
				set.DefaultStation = strings.TrimSpace(o.StringValue())
			}
		}
	case "set-announce-now-playing":
		for _, o := range sub.Options {
			if o.Name == "value" {
				set.AnnounceNowPlaying = o.BoolValue()
			}
		}
	case "set-leave-if-no-listeners":
		for _, o := range sub.Options {
			if o.Name == "value" {
				set.LeaveIfNoListeners = o.BoolValue()
			}
		}
	default:
		return
	}

	if err := h.repo.UpdateSettings(ctx, set); err != nil {
		slog.Error("settings update failed", "guildID", i.GuildID, "err", err)
		h.reply(s, i, "internal error", true)
		return
	}
	slog.Info("settings updated", "guildID", i.GuildID, "userID", userIDOf(i), "setting", sub.Name)
	h.reply(s, i, "settings updated", false)
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := uint64(0)
	if ephemeral {
		flags = 1 << 6
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlags(flags),
		},
	}); err != nil {
		slog.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	flags := uint64(0)
	if ephemeral {
		flags = 1 << 6
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlags(flags),
		},
	}); err != nil {
		slog.Warn("defer reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		slog.Warn("edit reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
