package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/station"
	"github.com/lostisle/stationbot/internal/stream"
)

// Transport joins Discord voice channels and hands back playing connections.
type Transport struct {
	s        *discordgo.Session
	resolver *stream.Resolver
}

func NewTransport(s *discordgo.Session, resolver *stream.Resolver) *Transport {
	return &Transport{s: s, resolver: resolver}
}

func (t *Transport) Join(ctx context.Context, guildID, channelID string) (station.Connection, error) {
	vc, err := t.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("voice join: %w", err)
	}
	if err := waitVoiceReady(ctx, vc); err != nil {
		safeDisconnect(vc)
		return nil, err
	}
	return newConn(t.s, vc, guildID, channelID, t.resolver), nil
}

func waitVoiceReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	for {
		if vc != nil && vc.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("voice connection not ready: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func safeDisconnect(vc *discordgo.VoiceConnection) {
	if vc == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = vc.Disconnect()
}
