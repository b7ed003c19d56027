// Package history tracks which items have already been delivered per channel.
//
// The persisted shape is a mapping from channel handle to the list of
// delivered item ids. Entries are only added after a confirmed delivery,
// so an id being present means that item reached the recipient in some
// past run.
package history

import (
	"context"
	"errors"
)

// ErrNotFound indicates no persisted history exists yet. Store
// implementations return it from Load so callers can start from an empty
// mapping; it is never an error condition for the run.
var ErrNotFound = errors.New("history: not found")

// History maps a channel handle to the set of delivered item ids,
// represented as a slice for serialization. Treat values as sets: order
// carries no meaning and ids are unique within a channel.
type History map[string][]string

// Contains reports whether id was already delivered for channel.
func (h History) Contains(channel, id string) bool {
	for _, seen := range h[channel] {
		if seen == id {
			return true
		}
	}
	return false
}

// DeliveredSet returns channel's delivered ids as a lookup set. The
// returned map is a snapshot; mutating it does not affect the history.
func (h History) DeliveredSet(channel string) map[string]struct{} {
	ids := h[channel]
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Record returns a new History with id added to channel's set. Adding an
// id that is already present is a no-op; the input history is never
// mutated.
func Record(h History, channel, id string) History {
	if h.Contains(channel, id) {
		return h.clone()
	}
	next := h.clone()
	next[channel] = append(next[channel], id)
	return next
}

func (h History) clone() History {
	next := make(History, len(h))
	for channel, ids := range h {
		copied := make([]string, len(ids))
		copy(copied, ids)
		next[channel] = copied
	}
	return next
}

// Store persists the delivered-items mapping. Load returns an empty
// History (not an error) when nothing has been persisted yet. Save
// replaces the full mapping; implementations must not leave a partially
// written mapping visible to a later Load.
type Store interface {
	Load(ctx context.Context) (History, error)
	Save(ctx context.Context, h History) error
}
