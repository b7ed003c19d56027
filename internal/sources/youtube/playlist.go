package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/castpost/castpost/internal/core"
)

const defaultPlaylistTimeout = 60 * time.Second

// PlaylistLister lists items straight from a playlist (typically a
// channel's uploads playlist), which reaches further back than the Atom
// feed does.
type PlaylistLister struct {
	timeout time.Duration
	limit   int
}

func NewPlaylistLister(timeout time.Duration, limit int) *PlaylistLister {
	if timeout <= 0 {
		timeout = defaultPlaylistTimeout
	}
	return &PlaylistLister{timeout: timeout, limit: limit}
}

func (l *PlaylistLister) List(ctx context.Context, channel core.Channel) ([]core.Item, error) {
	playlistID := PlaylistID(channel.Handle)
	if playlistID == "" {
		return nil, fmt.Errorf("cannot derive a playlist id from handle %q", channel.Handle)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	d := ytdlp.New()
	entries, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("list playlist %s: %w", playlistID, err)
	}

	limit := l.limit
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	items := make([]core.Item, 0, limit)
	for _, entry := range entries {
		if len(items) >= limit {
			break
		}
		items = append(items, core.Item{
			ID:    entry.VideoID,
			Title: entry.Title,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("list playlist %s: %w", playlistID, ErrNoItems)
	}
	return items, nil
}

// PlaylistID extracts a playlist id from a handle, a playlist URL, or a
// channel id. A channel id (UC...) maps to its uploads playlist (UU...).
func PlaylistID(handle string) string {
	handle = strings.TrimSpace(handle)
	if idx := strings.Index(handle, "list="); idx >= 0 {
		id := handle[idx+len("list="):]
		if amp := strings.IndexRune(id, '&'); amp >= 0 {
			id = id[:amp]
		}
		return id
	}
	switch {
	case strings.HasPrefix(handle, "PL"), strings.HasPrefix(handle, "UU"):
		return handle
	case strings.HasPrefix(handle, "UC"):
		return "UU" + strings.TrimPrefix(handle, "UC")
	default:
		return ""
	}
}
