package stream

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/lostisle/stationbot/internal/cache"
)

var installOnce sync.Once

// Resolver turns a track's source URL into something ffmpeg can open
// directly. Direct audio URLs pass through; everything else goes through
// yt-dlp, with results cached per source URL.
type Resolver struct {
	urls *cache.URLCache
}

func NewResolver(urls *cache.URLCache) *Resolver {
	return &Resolver{urls: urls}
}

func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if isDirectAudio(sourceURL) {
		return sourceURL, nil
	}
	if r.urls != nil {
		if resolved, ok := r.urls.Get(sourceURL); ok {
			return resolved, nil
		}
	}

	info, err := extractInfo(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	resolved := bestAudioURL(info)
	if resolved == "" {
		return "", fmt.Errorf("no playable audio format for %s", sourceURL)
	}
	if r.urls != nil {
		r.urls.Put(sourceURL, resolved)
	}
	return resolved, nil
}

// isDirectAudio reports whether ffmpeg can open the URL without extraction.
func isDirectAudio(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".flac", ".wav", ".m3u8":
		return true
	}
	// Preview CDN hosts serve bare audio without an extension.
	switch u.Host {
	case "p.scdn.co", "audio-ssl.itunes.apple.com":
		return true
	}
	return false
}

type extracted struct {
	URL              string
	Formats          []string
	RequestedFormats []string
}

func extractInfo(ctx context.Context, sourceURL string) (*extracted, error) {
	installOnce.Do(func() {
		ytdlp.MustInstall(ctx, nil)
	})

	cmd := ytdlp.New().
		Format("ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best").
		NoCheckCertificates().
		DumpJSON()

	res, err := cmd.Run(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("parse yt-dlp json: no info returned")
	}
	ext := infos[0]
	// Playlist containers mirror the first entry.
	if len(ext.Entries) > 0 {
		for _, e := range ext.Entries {
			if e != nil {
				ext = e
				break
			}
		}
	}

	out := &extracted{}
	if ext.URL != nil {
		out.URL = *ext.URL
	}
	for _, f := range ext.RequestedFormats {
		if f != nil {
			out.RequestedFormats = append(out.RequestedFormats, f.URL)
		}
	}
	for _, f := range ext.Formats {
		if f != nil {
			out.Formats = append(out.Formats, f.URL)
		}
	}
	return out, nil
}

// bestAudioURL prefers requested formats, then the top-level URL, then any
// format with an http URL.
func bestAudioURL(info *extracted) string {
	for _, u := range info.RequestedFormats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	if strings.HasPrefix(info.URL, "http") {
		return info.URL
	}
	for _, u := range info.Formats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return ""
}
