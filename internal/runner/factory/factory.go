// Package factory builds the runner's collaborators from environment
// settings and the workflow document.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/castpost/castpost/internal/config"
	"github.com/castpost/castpost/internal/download"
	"github.com/castpost/castpost/internal/googledrive"
	"github.com/castpost/castpost/internal/history"
	"github.com/castpost/castpost/internal/outputs/email"
	"github.com/castpost/castpost/internal/outputs/email/smtp"
	"github.com/castpost/castpost/internal/overflow"
	"github.com/castpost/castpost/internal/runner"
	"github.com/castpost/castpost/internal/selector"
	"github.com/castpost/castpost/internal/sources/youtube"
)

type Factory struct {
	Logger *slog.Logger
	Env    config.EnvConfig

	drive *googledrive.Client
}

func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{Logger: logger, Env: env}
}

// driveClient is built at most once; the overflow uploader and the
// drive history backend share the same authorized client.
func (f *Factory) driveClient(ctx context.Context) (*googledrive.Client, error) {
	if f.drive != nil {
		return f.drive, nil
	}
	client, err := googledrive.NewClient(ctx, f.Env.Drive.CredentialsPath, f.Env.Drive.TokenPath)
	if err != nil {
		return nil, err
	}
	f.drive = client
	return client, nil
}

func (f *Factory) NewHistoryStore(ctx context.Context) (history.Store, error) {
	switch f.Env.History.Backend {
	case config.HistoryBackendFile:
		return history.NewFileStore(f.Env.History.FilePath)
	case config.HistoryBackendSQLite:
		return history.NewSQLiteStore(f.Env.History.SQLiteDSN)
	case config.HistoryBackendDrive:
		client, err := f.driveClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("drive history backend: %w", err)
		}
		return history.NewObjectStore(client, f.Env.History.ObjectName)
	default:
		return nil, fmt.Errorf("unknown history backend %q (expected %s, %s or %s)",
			f.Env.History.Backend, config.HistoryBackendFile, config.HistoryBackendSQLite, config.HistoryBackendDrive)
	}
}

// NewUploader returns nil without error when no Drive credentials file
// is present. The runner treats a nil uploader as "no overflow storage"
// and fails oversized deliveries per channel.
func (f *Factory) NewUploader(ctx context.Context) (overflow.Uploader, error) {
	if _, err := os.Stat(f.Env.Drive.CredentialsPath); err != nil {
		f.Logger.Warn("drive credentials not found, overflow delivery disabled",
			"path", f.Env.Drive.CredentialsPath)
		return nil, nil
	}
	return f.driveClient(ctx)
}

func (f *Factory) NewLister(cfg config.ChannelConfig) youtube.Lister {
	if cfg.Lister == config.ListerPlaylist {
		return youtube.NewPlaylistLister(f.Env.Playlist.Timeout, cfg.Limit)
	}
	return youtube.NewFeedLister(f.Env.Feed.HTTPTimeout, f.Env.Feed.UserAgent, cfg.Limit)
}

func (f *Factory) NewSender() (email.Sender, error) {
	cfg := f.Env.SMTP
	if err := smtp.ValidateConfig(cfg.Host, cfg.Port); err != nil {
		return nil, err
	}
	return smtp.NewSender(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.TLSMode, cfg.InsecureSkipVerify), nil
}

// BuildPlans converts the document's channel entries into executable
// plans, compiling each filter rule up front so a bad rule fails at
// startup instead of mid-run.
func (f *Factory) BuildPlans(doc *config.Document) ([]runner.ChannelPlan, error) {
	plans := make([]runner.ChannelPlan, 0, len(doc.Workflow.Channels))
	for _, cfg := range doc.Workflow.Channels {
		var filter *selector.Filter
		if cfg.Filter != "" {
			compiled, err := selector.CompileFilter(cfg.Filter)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", cfg.Handle, err)
			}
			filter = compiled
		}
		plans = append(plans, runner.ChannelPlan{
			Channel:     cfg.Channel(),
			Lister:      f.NewLister(cfg),
			Filter:      filter,
			MaxAttempts: cfg.MaxAttempts,
		})
	}
	return plans, nil
}

func (f *Factory) BuildRunner(ctx context.Context, doc *config.Document) (*runner.Runner, error) {
	store, err := f.NewHistoryStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("build history store: %w", err)
	}
	uploader, err := f.NewUploader(ctx)
	if err != nil {
		return nil, fmt.Errorf("build overflow uploader: %w", err)
	}
	sender, err := f.NewSender()
	if err != nil {
		return nil, fmt.Errorf("build email sender: %w", err)
	}
	plans, err := f.BuildPlans(doc)
	if err != nil {
		return nil, err
	}
	return runner.New(f.Logger, runner.Deps{
		Store:      store,
		Prober:     youtube.NewProber(f.Env.Probe.Timeout),
		Downloader: download.NewYtdlpDownloader(f.Env.Download.Timeout),
		Uploader:   uploader,
		Sender:     sender,
	}, runner.Config{
		Channels:    plans,
		DownloadDir: doc.DownloadDir(),
		EmailTo:     doc.Workflow.Email.To,
		EmailFrom:   doc.Workflow.Email.From,
	})
}
