package mock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/castpost/castpost/internal/core"
)

// Downloader writes a sparse file of SizeByID[item.ID] bytes (default 1)
// so orchestrator tests can steer the overflow decision.
type Downloader struct {
	SizeByID map[string]int64
	Err      error
	ErrByID  map[string]error
	Requests []string
}

func (d *Downloader) Download(ctx context.Context, item core.Item, dir string) (string, error) {
	_ = ctx
	d.Requests = append(d.Requests, item.ID)
	if d.Err != nil {
		return "", d.Err
	}
	if err, ok := d.ErrByID[item.ID]; ok {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, item.ID+".mp3")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	size := int64(1)
	if s, ok := d.SizeByID[item.ID]; ok {
		size = s
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
