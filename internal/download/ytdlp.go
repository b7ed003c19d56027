package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/castpost/castpost/internal/core"
	"github.com/castpost/castpost/internal/retry"
)

const (
	defaultDownloadTimeout = 15 * time.Minute
	audioQuality           = "192K"
)

// YtdlpDownloader extracts audio with yt-dlp and re-encodes it to MP3.
type YtdlpDownloader struct {
	timeout time.Duration
}

func NewYtdlpDownloader(timeout time.Duration) *YtdlpDownloader {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &YtdlpDownloader{timeout: timeout}
}

func (d *YtdlpDownloader) Download(ctx context.Context, item core.Item, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir %s: %w", dir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	core.LoggerFromContext(ctx).Debug("starting audio download", "item_id", item.ID, "dir", dir)

	dl := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(audioQuality).
		NoPlaylist().
		RestrictFilenames().
		Output(filepath.Join(dir, "%(title)s.%(ext)s"))

	var result *ytdlp.Result
	err := retry.Do(ctx, retry.Config{Attempts: 2, BaseDelay: 2 * time.Second}, func() error {
		res, err := dl.Run(ctx, item.URL())
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", item.ID, err)
	}

	path, err := artifactPath(result, dir)
	if err != nil {
		return "", fmt.Errorf("locate artifact for %s: %w", item.ID, err)
	}
	return path, nil
}

// artifactPath resolves the MP3 produced by the run. yt-dlp reports the
// pre-extraction filename, so the extension is rewritten to .mp3 first;
// if that file is absent the newest .mp3 in the directory wins.
func artifactPath(result *ytdlp.Result, dir string) (string, error) {
	if result != nil {
		if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Filename != nil {
			reported := *info[0].Filename
			mp3 := strings.TrimSuffix(reported, filepath.Ext(reported)) + ".mp3"
			if _, err := os.Stat(mp3); err == nil {
				return mp3, nil
			}
			if _, err := os.Stat(reported); err == nil {
				return reported, nil
			}
		}
	}
	return newestMP3(dir)
}

func newestMP3(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no mp3 artifact found in %s", dir)
	}
	return newest, nil
}
