// Package youtube lists candidate items for configured channels and
// probes whether an item can currently be fetched.
package youtube

import (
	"context"
	"errors"

	"github.com/castpost/castpost/internal/core"
)

// ErrNoItems indicates the provider returned an empty candidate list.
var ErrNoItems = errors.New("youtube: channel has no items")

// Lister fetches the candidate items for a channel. Accessibility of the
// returned items is unknown; the prober decides that per item.
type Lister interface {
	List(ctx context.Context, channel core.Channel) ([]core.Item, error)
}
