package flow

import (
	"sort"

	"github.com/aretw0/kiosk/pkg/domain"
)

// Table is the compiled, immutable screen graph.
// It is safe for concurrent use once built.
type Table struct {
	initial     domain.State
	states      map[domain.State]struct{}
	order       []domain.State
	transitions []domain.Transition
	index       map[domain.State]map[domain.Trigger]domain.State
}

// Initial returns the initial screen.
func (t *Table) Initial() domain.State {
	return t.initial
}

// Has reports whether s belongs to the declared state set.
func (t *Table) Has(s domain.State) bool {
	_, ok := t.states[s]
	return ok
}

// Lookup returns the transition for (from, trigger), if declared.
func (t *Table) Lookup(from domain.State, trigger domain.Trigger) (domain.Transition, bool) {
	to, ok := t.index[from][trigger]
	if !ok {
		return domain.Transition{}, false
	}
	return domain.Transition{Trigger: trigger, From: from, To: to}, true
}

// Triggers returns the triggers legal from state, sorted by name.
func (t *Table) Triggers(from domain.State) []domain.Trigger {
	edges := t.index[from]
	out := make([]domain.Trigger, 0, len(edges))
	for trig := range edges {
		out = append(out, trig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// States returns the declared states in declaration order.
func (t *Table) States() []domain.State {
	return append([]domain.State(nil), t.order...)
}

// Transitions returns every compiled transition, universal ones expanded.
func (t *Table) Transitions() []domain.Transition {
	return append([]domain.Transition(nil), t.transitions...)
}

// Outgoing returns the transitions leaving from, in declaration order.
func (t *Table) Outgoing(from domain.State) []domain.Transition {
	var out []domain.Transition
	for _, tr := range t.transitions {
		if tr.From == from {
			out = append(out, tr)
		}
	}
	return out
}

// IsUniversal reports whether trigger is declared from every non-initial state.
func (t *Table) IsUniversal(trigger domain.Trigger) bool {
	for _, s := range t.order {
		if s == t.initial {
			continue
		}
		if _, ok := t.index[s][trigger]; !ok {
			return false
		}
	}
	return len(t.order) > 1
}
