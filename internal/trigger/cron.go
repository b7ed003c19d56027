// Package trigger emits run events on a cron schedule.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/castpost/castpost/internal/core"
	"github.com/robfig/cron/v3"
)

type Cron struct {
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan core.TriggerEvent
	stopOnce sync.Once
}

func NewCron(schedule, timezone string) *Cron {
	return &Cron{schedule: schedule, timezone: timezone}
}

func (c *Cron) Validate() error {
	if c.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if c.timezone != "" {
		if _, err := time.LoadLocation(c.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

// Start begins emitting events on the configured schedule. The event
// channel has a buffer of one and ticks are dropped while a previous run
// is still being consumed, so runs never overlap.
func (c *Cron) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan core.TriggerEvent, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, func() {
		select {
		case c.events <- core.TriggerEvent{Timestamp: time.Now().UTC()}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

// Stop is idempotent: it is reached both from the context watcher inside
// Start and from the caller's own shutdown path.
func (c *Cron) Stop() error {
	c.stopOnce.Do(func() {
		if c.cron != nil {
			ctx := c.cron.Stop()
			<-ctx.Done()
		}
		if c.events != nil {
			close(c.events)
		}
	})
	return nil
}
