package handlers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/cache"
	"github.com/lostisle/stationbot/internal/config"
	"github.com/lostisle/stationbot/internal/repository"
	"github.com/lostisle/stationbot/internal/spotify"
	"github.com/lostisle/stationbot/internal/station"
	"github.com/lostisle/stationbot/internal/stream"
)

type Bot struct {
	cfg      *config.Config
	repo     *repository.Repo
	stations *repository.StationService
	src      *spotify.Source
	reg      *station.Registry
	resolver *stream.Resolver
}

func NewBot(cfg *config.Config, repo *repository.Repo) (*Bot, error) {
	client, err := spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	if err != nil {
		return nil, err
	}
	return &Bot{
		cfg:      cfg,
		repo:     repo,
		stations: repository.NewStationService(repo),
		src:      spotify.NewSource(client, cfg.StationBatchSize),
		reg:      station.NewRegistry(),
		resolver: stream.NewResolver(cache.NewURLCache(cache.DefaultURLTTL)),
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	cmd := NewCommandHandler(b.cfg, b.repo, b.stations, b.src, b.reg, b.resolver)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
		appID := s.State.User.ID

		status := discordgo.UpdateStatusData{Status: b.cfg.BotStatus}
		if b.cfg.BotActivity != "" {
			status.Activities = []*discordgo.Activity{{
				Name: b.cfg.BotActivity,
				Type: discordgo.ActivityTypeListening,
			}}
		}
		if err := s.UpdateStatusComplex(status); err != nil {
			slog.Warn("update presence failed", "err", err)
		}

		if b.cfg.RegisterCommandsOnBot {
			if err := cmd.RegisterCommands(s, appID, ""); err != nil {
				slog.Error("register global commands", "err", err)
			} else {
				slog.Info("registered global application commands")
			}
		} else {
			var wg sync.WaitGroup
			for _, g := range s.State.Guilds {
				wg.Add(1)
				go func(guildID string) {
					defer wg.Done()
					if err := cmd.RegisterCommands(s, appID, guildID); err != nil {
						slog.Error("register guild commands", "guild", guildID, "err", err)
					}
				}(g.ID)
			}
			wg.Wait()

			if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
				slog.Error("clear global commands", "err", err)
			}
			slog.Info("registered commands on all guilds")
		}
	})

	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot {
			return
		}
		appID := s.State.User.ID
		if err := cmd.RegisterCommands(s, appID, g.ID); err != nil {
			slog.Error("register guild commands on join", "guild", g.ID, "err", err)
		}
	})

	dg.AddHandler(cmd.HandleInteraction)

	// leave-if-no-listeners
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		gid := vs.GuildID
		sess, ok := b.reg.Get(gid)
		if !ok {
			return
		}
		set, err := b.repo.GetSettings(context.Background(), gid)
		if err != nil || set == nil || !set.LeaveIfNoListeners {
			return
		}
		if getNonBotSize(s, gid, sess.ChannelID()) == 0 {
			slog.Info("no listeners left, stopping", "guild", gid)
			sess.Stop()
		}
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	return nil
}

func getNonBotSize(s *discordgo.Session, guildID, channelID string) int {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		return 0
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID {
			m, _ := s.State.Member(guildID, vs.UserID)
			if m != nil && m.User != nil && !m.User.Bot {
				n++
			}
		}
	}
	return n
}
