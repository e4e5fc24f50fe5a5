package discord

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lostisle/stationbot/internal/station"
	"github.com/lostisle/stationbot/internal/stream"
)

const (
	frameInterval = 20 * time.Millisecond
	sendTimeout   = 2 * time.Second
)

// Conn is one live voice connection. Each Play spawns a pipeline goroutine
// (ffmpeg PCM, opus encode, paced OpusSend); Stop cancels the pipeline
// silently so the session can replace a track without a spurious idle event.
type Conn struct {
	s         *discordgo.Session
	resolver  *stream.Resolver
	guildID   string
	channelID string

	mu     sync.Mutex
	vc     *discordgo.VoiceConnection
	cancel context.CancelFunc // current pipeline
	gen    uint64             // pipeline generation, bumped by Play and Stop
	paused atomic.Bool
	events chan station.PlayerEvent
	closed bool
}

func newConn(s *discordgo.Session, vc *discordgo.VoiceConnection, guildID, channelID string, resolver *stream.Resolver) *Conn {
	return &Conn{
		s:         s,
		resolver:  resolver,
		guildID:   guildID,
		channelID: channelID,
		vc:        vc,
		events:    make(chan station.PlayerEvent, 8),
	}
}

func (c *Conn) Events() <-chan station.PlayerEvent { return c.events }

func (c *Conn) Play(ctx context.Context, streamURL string) error {
	resolved := streamURL
	if c.resolver != nil {
		var err error
		resolved, err = c.resolver.Resolve(ctx, streamURL)
		if err != nil {
			return fmt.Errorf("resolve stream: %w", err)
		}
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	vc := c.vc
	pctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.paused.Store(false)
	c.mu.Unlock()

	if vc == nil {
		cancel()
		return fmt.Errorf("no voice connection")
	}

	ps, err := stream.StartPCMStream(pctx, resolved)
	if err != nil {
		cancel()
		return err
	}
	enc, err := stream.NewEncoder()
	if err != nil {
		ps.Close()
		cancel()
		return err
	}

	go c.pipeline(pctx, gen, vc, ps, enc)
	return nil
}

func (c *Conn) pipeline(ctx context.Context, gen uint64, vc *discordgo.VoiceConnection, ps *stream.PCMStreamer, enc *stream.Encoder) {
	defer ps.Close()
	defer enc.Close()

	_ = vc.Speaking(true)
	defer func() { _ = vc.Speaking(false) }()

	send := func(pkt []byte) error {
		out := make([]byte, len(pkt))
		copy(out, pkt)
		select {
		case vc.OpusSend <- out:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sendTimeout):
			return errSendTimeout
		}
	}

	reader := bufio.NewReaderSize(ps.Stdout(), 64*1024)
	buf := make([]byte, enc.FrameBytes())
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		if err := c.waitUnpaused(ctx); err != nil {
			return
		}
		if _, err := io.ReadFull(reader, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				_ = enc.Flush(send)
				c.emit(gen, station.PlayerEvent{Type: station.EventIdle})
				return
			}
			if ctx.Err() != nil {
				return
			}
			c.emit(gen, station.PlayerEvent{Type: station.EventError, Err: fmt.Errorf("read pcm: %w", err)})
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		if err := enc.EncodeFrame(buf, send); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errSendTimeout) {
				c.emit(gen, station.PlayerEvent{Type: station.EventDisconnected, Err: err})
				return
			}
			c.emit(gen, station.PlayerEvent{Type: station.EventError, Err: err})
			return
		}
	}
}

var errSendTimeout = errors.New("opus send timeout")

func (c *Conn) waitUnpaused(ctx context.Context) error {
	for c.paused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return ctx.Err()
}

// emit delivers an event only if the pipeline that produced it is still the
// current one. A Stop or replacement Play bumps the generation first, which
// keeps cancelled pipelines silent. The send happens under the mutex so it
// can never race the channel close in Disconnect.
func (c *Conn) emit(gen uint64, ev station.PlayerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Conn) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return station.ErrNotPlaying
	}
	c.paused.Store(true)
	return nil
}

func (c *Conn) Unpause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return station.ErrNotPaused
	}
	c.paused.Store(false)
	return nil
}

func (c *Conn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.paused.Store(false)
}

func (c *Conn) Rejoin(ctx context.Context) error {
	c.Stop()
	vc, err := c.s.ChannelVoiceJoin(c.guildID, c.channelID, false, true)
	if err != nil {
		return fmt.Errorf("voice rejoin: %w", err)
	}
	if err := waitVoiceReady(ctx, vc); err != nil {
		safeDisconnect(vc)
		return err
	}
	c.mu.Lock()
	c.vc = vc
	c.mu.Unlock()
	return nil
}

func (c *Conn) Disconnect() {
	c.Stop()
	c.mu.Lock()
	vc := c.vc
	c.vc = nil
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()
	safeDisconnect(vc)
	if !alreadyClosed {
		close(c.events)
	}
}
