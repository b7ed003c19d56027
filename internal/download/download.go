// Package download turns a selected item into a local MP3 artifact.
package download

import (
	"context"

	"github.com/castpost/castpost/internal/core"
)

// Downloader fetches an item's audio into dir and returns the artifact
// path. Implementations must not leave a partial artifact at the
// returned path on error.
type Downloader interface {
	Download(ctx context.Context, item core.Item, dir string) (string, error)
}
