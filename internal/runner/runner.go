// Package runner drives the per-channel pipeline: list, select, download,
// size, deliver, commit. Channels are processed strictly sequentially and
// every failure is contained to the channel it happened in.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/castpost/castpost/internal/core"
	"github.com/castpost/castpost/internal/download"
	"github.com/castpost/castpost/internal/history"
	"github.com/castpost/castpost/internal/outputs/email"
	"github.com/castpost/castpost/internal/overflow"
	"github.com/castpost/castpost/internal/selector"
	"github.com/castpost/castpost/internal/sources/youtube"
	"github.com/castpost/castpost/internal/trigger"
)

// OverflowThreshold is the hard attachment cutoff. An artifact of exactly
// this size is still attached; one byte more goes through the overflow
// path.
const OverflowThreshold int64 = 25 << 20 // 25 MiB

// ChannelPlan binds a configured channel to its listing strategy and
// selection parameters.
type ChannelPlan struct {
	Channel     core.Channel
	Lister      youtube.Lister
	Filter      *selector.Filter
	MaxAttempts int
}

// Deps are the collaborators a run needs. Uploader may be nil when no
// overflow storage is configured; oversized artifacts then fail delivery
// for their channel instead of being attached anyway.
type Deps struct {
	Store      history.Store
	Selector   *selector.Selector
	Prober     selector.Prober
	Downloader download.Downloader
	Uploader   overflow.Uploader
	Sender     email.Sender
}

type Config struct {
	Channels    []ChannelPlan
	DownloadDir string
	EmailTo     string
	EmailFrom   string
}

type Runner struct {
	logger *slog.Logger
	deps   Deps
	cfg    Config
	tracer trace.Tracer
}

func New(logger *slog.Logger, deps Deps, cfg Config) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if deps.Prober == nil || deps.Downloader == nil || deps.Sender == nil {
		return nil, fmt.Errorf("prober, downloader and sender are required")
	}
	if deps.Selector == nil {
		deps.Selector = selector.New()
	}
	if cfg.EmailTo == "" {
		return nil, fmt.Errorf("email recipient is required")
	}
	return &Runner{
		logger: logger,
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("castpost/runner"),
	}, nil
}

// Start consumes trigger events and executes one run per event. Events
// arriving while a run is active are dropped by the trigger's buffer, so
// runs never overlap.
func (r *Runner) Start(ctx context.Context, cron *trigger.Cron) error {
	events, err := cron.Start(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				r.logger.Info("trigger event", "time", event.Timestamp)
				if _, err := r.RunOnce(ctx); err != nil {
					r.logger.Error("run failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// RunOnce processes every configured channel once and reports one
// outcome per channel. Only an unusable history load degrades globally
// (an empty mapping is used and the degradation is logged); everything
// else is contained per channel.
func (r *Runner) RunOnce(ctx context.Context) (*core.Run, error) {
	run := &core.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(attribute.String("run_id", run.ID)))
	defer span.End()

	logger := r.logger.With("run_id", run.ID)

	hist, err := r.deps.Store.Load(ctx)
	if err != nil {
		// Running without history risks repeats but beats not running.
		logger.Warn("history load failed, continuing with empty history", "error", err)
		hist = history.History{}
	}

	for _, plan := range r.cfg.Channels {
		outcome := r.processChannel(ctx, logger, &hist, plan)
		run.Outcomes = append(run.Outcomes, outcome)
	}

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	logger.Info("run complete",
		"committed", run.Committed(),
		"attempted", run.Attempted(),
	)
	return run, nil
}

func (r *Runner) processChannel(ctx context.Context, logger *slog.Logger, hist *history.History, plan ChannelPlan) core.RunOutcome {
	handle := plan.Channel.Handle
	ctx, span := r.tracer.Start(ctx, "channel", trace.WithAttributes(attribute.String("channel", handle)))
	defer span.End()

	logger = logger.With("channel", handle)
	ctx = core.WithLogger(ctx, logger)
	outcome := core.RunOutcome{Channel: plan.Channel, State: core.StatePending}

	outcome.State = core.StateListing
	candidates, err := plan.Lister.List(ctx, plan.Channel)
	if err != nil {
		logger.Warn("listing failed, skipping channel", "error", err)
		outcome.State = core.StateSkippedNoCandidate
		outcome.Error = err
		return outcome
	}
	candidates = plan.Filter.Apply(candidates)

	outcome.State = core.StateSelecting
	item, err := r.deps.Selector.Select(ctx, candidates, hist.DeliveredSet(handle), r.deps.Prober, plan.MaxAttempts)
	if err != nil {
		if errors.Is(err, selector.ErrNoCandidate) {
			logger.Info("no accessible undelivered candidate")
		} else {
			logger.Warn("selection failed", "error", err)
		}
		outcome.State = core.StateSkippedNoCandidate
		outcome.Error = err
		return outcome
	}
	outcome.Item = item
	logger = logger.With("item_id", item.ID)
	logger.Info("selected item", "title", item.Title)

	outcome.State = core.StateDownloading
	artifact, err := r.deps.Downloader.Download(ctx, item, r.cfg.DownloadDir)
	if err != nil {
		logger.Error("download failed", "error", err)
		outcome.State = core.StateFailed
		outcome.Error = err
		return outcome
	}

	outcome.State = core.StateSizing
	info, err := os.Stat(artifact)
	if err != nil {
		logger.Error("artifact stat failed", "path", artifact, "error", err)
		outcome.State = core.StateFailed
		outcome.Error = err
		return outcome
	}

	var link string
	if info.Size() > OverflowThreshold {
		outcome.State = core.StateDeliveringViaOverflow
		if r.deps.Uploader == nil {
			err := fmt.Errorf("artifact is %d bytes but no overflow uploader is configured", info.Size())
			logger.Error("delivery failed", "error", err)
			outcome.State = core.StateFailed
			outcome.Error = err
			return outcome
		}
		link, err = r.deps.Uploader.Upload(ctx, artifact)
		if err != nil {
			logger.Error("overflow upload failed, artifact retained", "path", artifact, "error", err)
			outcome.State = core.StateFailed
			outcome.Error = err
			return outcome
		}
		logger.Info("artifact uploaded", "size", info.Size(), "link", link)
	} else {
		outcome.State = core.StateDeliveringDirect
	}

	message, err := email.BuildMessage(r.cfg.EmailTo, r.cfg.EmailFrom, plan.Channel, item, artifact, link)
	if err != nil {
		logger.Error("message build failed", "error", err)
		outcome.State = core.StateFailed
		outcome.Error = err
		return outcome
	}
	if err := r.deps.Sender.Send(ctx, message); err != nil {
		logger.Error("delivery failed, artifact retained", "path", artifact, "error", err)
		outcome.State = core.StateFailed
		outcome.Error = err
		return outcome
	}

	outcome.State = core.StateDelivered
	outcome.Delivered = true

	next := history.Record(*hist, handle, item.ID)
	if err := r.deps.Store.Save(ctx, next); err != nil {
		// The item went out but was not recorded; a future run may send
		// it again. Surface the window instead of masking it.
		logger.Error("history save failed after delivery, duplicate possible next run", "error", err)
		outcome.Error = fmt.Errorf("history save after delivery: %w", err)
		return outcome
	}
	*hist = next

	outcome.State = core.StateCommitted
	logger.Info("delivery committed")
	return outcome
}
