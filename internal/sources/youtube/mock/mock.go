package mock

import (
	"context"

	"github.com/castpost/castpost/internal/core"
)

type Lister struct {
	ItemsByChannel map[string][]core.Item
	Err            error
	Listed         []string
}

func (l *Lister) List(ctx context.Context, channel core.Channel) ([]core.Item, error) {
	_ = ctx
	l.Listed = append(l.Listed, channel.Handle)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.ItemsByChannel[channel.Handle], nil
}

type Prober struct {
	Inaccessible map[string]bool
	Err          error
	Probed       []string
}

func (p *Prober) Probe(ctx context.Context, item core.Item) (bool, error) {
	_ = ctx
	p.Probed = append(p.Probed, item.ID)
	if p.Err != nil {
		return false, p.Err
	}
	return !p.Inaccessible[item.ID], nil
}
