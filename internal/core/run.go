package core

import (
	"time"
)

// ChannelState tracks a channel's progress through the per-run pipeline.
type ChannelState string

const (
	StatePending              ChannelState = "pending"
	StateListing              ChannelState = "listing"
	StateSelecting            ChannelState = "selecting"
	StateDownloading          ChannelState = "downloading"
	StateSizing               ChannelState = "sizing"
	StateDeliveringDirect     ChannelState = "delivering_direct"
	StateDeliveringViaOverflow ChannelState = "delivering_via_overflow"
	StateDelivered            ChannelState = "delivered"

	// Terminal states.
	StateCommitted          ChannelState = "committed"
	StateSkippedNoCandidate ChannelState = "skipped_no_candidate"
	StateFailed             ChannelState = "failed"
)

// RunOutcome records what happened to one channel in one run. Error holds
// the failure for the run summary; it is cleared state, not persisted.
type RunOutcome struct {
	Channel   Channel
	Item      Item
	State     ChannelState
	Delivered bool
	Error     error
}

// Run represents a single execution across all configured channels.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Outcomes    []RunOutcome
}

// Committed counts channels that reached the committed state.
func (r *Run) Committed() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.State == StateCommitted {
			n++
		}
	}
	return n
}

// Attempted returns the number of channels processed in this run.
func (r *Run) Attempted() int {
	return len(r.Outcomes)
}

// TriggerEvent represents a trigger firing.
type TriggerEvent struct {
	Timestamp time.Time
}
