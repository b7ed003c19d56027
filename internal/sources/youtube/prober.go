package youtube

import (
	"context"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/castpost/castpost/internal/core"
)

const defaultProbeTimeout = 30 * time.Second

// Prober checks accessibility by asking yt-dlp to simulate a fetch of the
// item. Membership-gated, private, and age-restricted items fail the
// simulation and are reported as inaccessible.
type Prober struct {
	timeout time.Duration
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

func (p *Prober) Probe(ctx context.Context, item core.Item) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dl := ytdlp.New().
		Simulate().
		NoPlaylist().
		Quiet()
	if _, err := dl.Run(ctx, item.URL()); err != nil {
		return false, err
	}
	return true, nil
}
