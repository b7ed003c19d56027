package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/castpost/castpost/internal/core"
	"github.com/castpost/castpost/internal/retry"
)

// FeedLister lists a channel's uploads through its public Atom feed.
// Feeds only expose the most recent uploads, which is plenty for a
// selection pool, and they need no API quota.
type FeedLister struct {
	parser *gofeed.Parser
	limit  int
}

func NewFeedLister(timeout time.Duration, userAgent string, limit int) *FeedLister {
	client := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &FeedLister{parser: parser, limit: limit}
}

func (l *FeedLister) List(ctx context.Context, channel core.Channel) ([]core.Item, error) {
	feedURL, err := FeedURL(channel.Handle)
	if err != nil {
		return nil, err
	}

	var feed *gofeed.Feed
	err = retry.Do(ctx, retry.Config{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		parsed, err := l.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return err
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch uploads feed for %s: %w", channel.Handle, err)
	}

	limit := l.limit
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	items := make([]core.Item, 0, limit)
	for _, entry := range feed.Items {
		if len(items) >= limit {
			break
		}
		items = append(items, core.Item{
			ID:    videoIDFromEntry(entry),
			Title: entry.Title,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("list %s: %w", channel.Handle, ErrNoItems)
	}
	return items, nil
}

// FeedURL maps a channel handle onto YouTube's uploads feed endpoint.
// Channel ids (UC...) and playlist ids (PL.../UU...) have dedicated query
// parameters; full URLs pass through; anything else is treated as a
// legacy username.
func FeedURL(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", fmt.Errorf("channel handle is required")
	}
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle, nil
	}
	switch {
	case strings.HasPrefix(handle, "UC"):
		return "https://www.youtube.com/feeds/videos.xml?channel_id=" + handle, nil
	case strings.HasPrefix(handle, "PL"), strings.HasPrefix(handle, "UU"):
		return "https://www.youtube.com/feeds/videos.xml?playlist_id=" + handle, nil
	default:
		return "https://www.youtube.com/feeds/videos.xml?user=" + strings.TrimPrefix(handle, "@"), nil
	}
}

// videoIDFromEntry prefers the yt:videoId extension and falls back to the
// "yt:video:<id>" GUID form. A missing id yields an empty string, which
// the selector drops as malformed.
func videoIDFromEntry(entry *gofeed.Item) string {
	if ext, ok := entry.Extensions["yt"]; ok {
		if ids, ok := ext["videoId"]; ok && len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	if strings.HasPrefix(entry.GUID, "yt:video:") {
		return strings.TrimPrefix(entry.GUID, "yt:video:")
	}
	return ""
}
