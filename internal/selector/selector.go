// Package selector picks one deliverable item for a channel out of the
// candidates a lister returned, honoring the delivered-items history and
// a bounded probe budget.
package selector

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/castpost/castpost/internal/core"
)

// DefaultMaxAttempts bounds how many shuffled candidates are probed
// before the channel is given up for this run.
const DefaultMaxAttempts = 10

// ErrNoCandidate indicates no accessible candidate was found within the
// attempt budget. The channel contributes nothing to the current run.
var ErrNoCandidate = errors.New("selector: no accessible candidate")

// Prober checks whether an item is currently fetchable. Probe errors are
// treated the same as inaccessible.
type Prober interface {
	Probe(ctx context.Context, item core.Item) (bool, error)
}

type Selector struct {
	rnd     *rand.Rand
	shuffle func([]core.Item)
}

func New() *Selector {
	s := &Selector{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	s.shuffle = s.shuffleItems
	return s
}

// Select returns the first accessible candidate, preferring items whose id
// is not in delivered. When every candidate was already delivered, the
// full list is used again so small channels keep producing instead of
// starving forever.
//
// Candidates are tried in uniformly random order, at most maxAttempts of
// them (DefaultMaxAttempts when maxAttempts <= 0).
func (s *Selector) Select(ctx context.Context, candidates []core.Item, delivered map[string]struct{}, prober Prober, maxAttempts int) (core.Item, error) {
	valid := make([]core.Item, 0, len(candidates))
	for _, item := range candidates {
		// Malformed provider entries carry no id; drop them silently.
		if item.ID == "" {
			continue
		}
		valid = append(valid, item)
	}

	fresh := make([]core.Item, 0, len(valid))
	for _, item := range valid {
		if _, seen := delivered[item.ID]; !seen {
			fresh = append(fresh, item)
		}
	}

	// Reset-on-exhaustion: a fully delivered channel falls back to its
	// complete candidate list and repeats are allowed.
	pool := fresh
	if len(pool) == 0 {
		pool = valid
	}
	if len(pool) == 0 {
		return core.Item{}, ErrNoCandidate
	}

	shuffled := make([]core.Item, len(pool))
	copy(shuffled, pool)
	s.shuffle(shuffled)

	budget := maxAttempts
	if budget <= 0 {
		budget = DefaultMaxAttempts
	}
	if budget > len(shuffled) {
		budget = len(shuffled)
	}

	for _, item := range shuffled[:budget] {
		accessible, err := prober.Probe(ctx, item)
		if err != nil || !accessible {
			continue
		}
		return item, nil
	}
	return core.Item{}, ErrNoCandidate
}

func (s *Selector) shuffleItems(items []core.Item) {
	s.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
