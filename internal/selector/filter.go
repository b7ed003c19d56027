package selector

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/castpost/castpost/internal/core"
)

// Filter narrows a channel's candidate list with a configured expression
// before selection runs. Expressions see ID, Title and Duration (seconds)
// and must evaluate to a bool, e.g. `Duration > 600 && Title contains "EP"`.
type Filter struct {
	rule    string
	program *vm.Program
}

func CompileFilter(rule string) (*Filter, error) {
	if rule == "" {
		return nil, fmt.Errorf("filter rule is required")
	}
	program, err := expr.Compile(rule, expr.Env(filterEnv(core.Item{})))
	if err != nil {
		return nil, fmt.Errorf("compile candidate filter: %w", err)
	}
	return &Filter{rule: rule, program: program}, nil
}

// Match reports whether the item passes the filter.
func (f *Filter) Match(item core.Item) (bool, error) {
	result, err := expr.Run(f.program, filterEnv(item))
	if err != nil {
		return false, fmt.Errorf("evaluate candidate filter: %w", err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("candidate filter %q did not return bool", f.rule)
	}
	return matched, nil
}

// Apply returns the items that pass the filter. An item whose evaluation
// fails is kept; filters narrow the pool, they never empty it by accident.
func (f *Filter) Apply(items []core.Item) []core.Item {
	if f == nil {
		return items
	}
	kept := make([]core.Item, 0, len(items))
	for _, item := range items {
		matched, err := f.Match(item)
		if err != nil || matched {
			kept = append(kept, item)
		}
	}
	return kept
}

func filterEnv(item core.Item) map[string]interface{} {
	return map[string]interface{}{
		"ID":       item.ID,
		"Title":    item.Title,
		"Duration": int(item.Duration.Seconds()),
	}
}
