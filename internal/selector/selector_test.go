package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/castpost/castpost/internal/core"
)

type fakeProber struct {
	accessible map[string]bool
	errIDs     map[string]error
	probed     []string
}

func (p *fakeProber) Probe(ctx context.Context, item core.Item) (bool, error) {
	_ = ctx
	p.probed = append(p.probed, item.ID)
	if err, ok := p.errIDs[item.ID]; ok {
		return false, err
	}
	return p.accessible[item.ID], nil
}

func allAccessible(items []core.Item) *fakeProber {
	accessible := make(map[string]bool, len(items))
	for _, item := range items {
		accessible[item.ID] = true
	}
	return &fakeProber{accessible: accessible}
}

// newOrdered returns a selector whose shuffle keeps candidate order, so
// probe order is predictable in tests.
func newOrdered() *Selector {
	s := New()
	s.shuffle = func([]core.Item) {}
	return s
}

func items(ids ...string) []core.Item {
	out := make([]core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.Item{ID: id, Title: "title-" + id})
	}
	return out
}

func deliveredSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestSelectExcludesDeliveredIDs(t *testing.T) {
	candidates := items("id1", "id2", "id3")
	prober := allAccessible(candidates)

	item, err := New().Select(context.Background(), candidates, deliveredSet("id1", "id2"), prober, 10)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if item.ID != "id3" {
		t.Fatalf("expected the only fresh candidate id3, got %s", item.ID)
	}
}

func TestSelectNeverReturnsDeliveredWhileFreshRemain(t *testing.T) {
	candidates := items("id1", "id2", "id3", "id4")
	delivered := deliveredSet("id1", "id3")

	for i := 0; i < 50; i++ {
		prober := allAccessible(candidates)
		item, err := New().Select(context.Background(), candidates, delivered, prober, 10)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if _, seen := delivered[item.ID]; seen {
			t.Fatalf("selected already-delivered item %s", item.ID)
		}
	}
}

func TestSelectResetOnExhaustion(t *testing.T) {
	candidates := items("id1", "id2", "id3")
	prober := allAccessible(candidates)

	item, err := New().Select(context.Background(), candidates, deliveredSet("id1", "id2", "id3"), prober, 10)
	if err != nil {
		t.Fatalf("exhausted channel must fall back to the full list, got error: %v", err)
	}
	found := false
	for _, candidate := range candidates {
		if candidate.ID == item.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("selected item %s is not one of the candidates", item.ID)
	}
}

func TestSelectAttemptBudgetExhausted(t *testing.T) {
	candidates := items("a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10")
	prober := &fakeProber{accessible: map[string]bool{}}

	_, err := New().Select(context.Background(), candidates, nil, prober, 10)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
	if len(prober.probed) != 10 {
		t.Fatalf("expected 10 probe attempts, got %d", len(prober.probed))
	}
}

func TestSelectBudgetStopsBeforeEleventhCandidate(t *testing.T) {
	ids := make([]string, 0, 11)
	for i := 1; i <= 11; i++ {
		ids = append(ids, fmt.Sprintf("a%d", i))
	}
	candidates := items(ids...)
	// Only the last candidate is accessible and the shuffle is disabled,
	// so the budget runs out before it is reached.
	prober := &fakeProber{accessible: map[string]bool{"a11": true}}

	_, err := newOrdered().Select(context.Background(), candidates, nil, prober, 10)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate when the budget excludes the accessible item, got %v", err)
	}
	if len(prober.probed) != 10 {
		t.Fatalf("expected exactly 10 probes, got %d", len(prober.probed))
	}
}

func TestSelectUnderSupplyIsNotAnError(t *testing.T) {
	candidates := items("id1", "id2")
	prober := &fakeProber{accessible: map[string]bool{"id2": true}}

	item, err := newOrdered().Select(context.Background(), candidates, nil, prober, 10)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if item.ID != "id2" {
		t.Fatalf("expected id2, got %s", item.ID)
	}
	if len(prober.probed) != 2 {
		t.Fatalf("expected both candidates probed, got %d", len(prober.probed))
	}
}

func TestSelectProbeErrorMeansInaccessible(t *testing.T) {
	candidates := items("id1", "id2")
	prober := &fakeProber{
		accessible: map[string]bool{"id2": true},
		errIDs:     map[string]error{"id1": errors.New("age gated")},
	}

	item, err := newOrdered().Select(context.Background(), candidates, nil, prober, 10)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if item.ID != "id2" {
		t.Fatalf("expected probe error to skip id1, got %s", item.ID)
	}
}

func TestSelectDropsEntriesWithoutID(t *testing.T) {
	candidates := []core.Item{{Title: "no id"}, {ID: "id1", Title: "ok"}}
	prober := allAccessible(candidates)

	item, err := New().Select(context.Background(), candidates, nil, prober, 10)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if item.ID != "id1" {
		t.Fatalf("expected id1, got %s", item.ID)
	}
	for _, probed := range prober.probed {
		if probed == "" {
			t.Fatalf("malformed entry must not be probed")
		}
	}
}

func TestSelectNoCandidatesAtAll(t *testing.T) {
	prober := &fakeProber{}
	_, err := New().Select(context.Background(), nil, nil, prober, 10)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
}

func TestFilterByDurationAndTitle(t *testing.T) {
	filter, err := CompileFilter(`Duration >= 600 && Title contains "EP"`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	candidates := []core.Item{
		{ID: "short", Title: "EP 1", Duration: 5 * time.Minute},
		{ID: "long", Title: "EP 2", Duration: 90 * time.Minute},
		{ID: "clip", Title: "teaser", Duration: 90 * time.Minute},
	}
	kept := filter.Apply(candidates)
	if len(kept) != 1 || kept[0].ID != "long" {
		t.Fatalf("expected only the long episode to pass, got %v", kept)
	}
}

func TestFilterRejectsNonBoolRule(t *testing.T) {
	filter, err := CompileFilter(`Title`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if _, err := filter.Match(core.Item{ID: "x", Title: "y"}); err == nil {
		t.Fatalf("expected error for non-bool filter result")
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := CompileFilter(`Duration >`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestNilFilterKeepsEverything(t *testing.T) {
	var filter *Filter
	candidates := items("id1", "id2")
	kept := filter.Apply(candidates)
	if len(kept) != 2 {
		t.Fatalf("nil filter must keep all items, got %d", len(kept))
	}
}
