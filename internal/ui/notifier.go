package ui

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/station"
)

// ChannelNotifier renders session notices into a guild text channel. The
// loading message is edited in place once playback starts so each track
// produces a single embed.
type ChannelNotifier struct {
	s           *discordgo.Session
	channelID   string
	stationName string
	announce    bool

	mu     sync.Mutex
	lastID string
	paused bool
}

var _ station.Notifier = (*ChannelNotifier)(nil)

func NewChannelNotifier(s *discordgo.Session, channelID, stationName string, announce bool) *ChannelNotifier {
	return &ChannelNotifier{s: s, channelID: channelID, stationName: stationName, announce: announce}
}

func (n *ChannelNotifier) Loading(t station.Track) {
	if !n.announce {
		return
	}
	msg, err := n.s.ChannelMessageSendEmbed(n.channelID, BuildLoadingEmbed(t))
	if err != nil {
		slog.Warn("send loading notice failed", "channel", n.channelID, "error", err)
		return
	}
	n.mu.Lock()
	n.lastID = msg.ID
	n.mu.Unlock()
}

func (n *ChannelNotifier) NowPlaying(t station.Track) {
	if !n.announce {
		return
	}
	n.mu.Lock()
	lastID := n.lastID
	paused := n.paused
	n.mu.Unlock()

	embed := BuildNowPlayingEmbed(t, n.stationName, 0, paused)
	if lastID != "" {
		if _, err := n.s.ChannelMessageEditEmbed(n.channelID, lastID, embed); err == nil {
			return
		}
	}
	msg, err := n.s.ChannelMessageSendEmbed(n.channelID, embed)
	if err != nil {
		slog.Warn("send now playing failed", "channel", n.channelID, "error", err)
		return
	}
	n.mu.Lock()
	n.lastID = msg.ID
	n.mu.Unlock()
}

func (n *ChannelNotifier) Error(msg string) {
	if _, err := n.s.ChannelMessageSend(n.channelID, "⚠️ "+msg); err != nil {
		slog.Warn("send error notice failed", "channel", n.channelID, "error", err)
	}
}

// Exhausted posts an end-of-station notice. Never gated on announce: the
// session stays connected awaiting /stop, and nothing else tells the channel.
func (n *ChannelNotifier) Exhausted() {
	if _, err := n.s.ChannelMessageSend(n.channelID, "📻 station ended, nothing left to play. /stop to leave."); err != nil {
		slog.Warn("send exhausted notice failed", "channel", n.channelID, "error", err)
	}
	n.mu.Lock()
	n.lastID = ""
	n.paused = false
	n.mu.Unlock()
}

func (n *ChannelNotifier) Stopped() {
	if !n.announce {
		return
	}
	n.mu.Lock()
	n.lastID = ""
	n.paused = false
	n.mu.Unlock()
}

func (n *ChannelNotifier) ControlsChanged(isPlaying bool) {
	n.mu.Lock()
	n.paused = !isPlaying
	n.mu.Unlock()
}
