package flow

import (
	"github.com/aretw0/kiosk/pkg/domain"
)

// Builder collects transition declarations and compiles them into a Table.
type Builder struct {
	initial     domain.State
	states      []domain.State
	transitions []domain.Transition
	universal   []universalRule
}

type universalRule struct {
	trigger domain.Trigger
	to      domain.State
}

// NewBuilder starts a table whose declared state set is states and whose
// initial screen is initial.
func NewBuilder(initial domain.State, states ...domain.State) *Builder {
	return &Builder{
		initial: initial,
		states:  states,
	}
}

// Add declares a single transition.
func (b *Builder) Add(trigger domain.Trigger, from, to domain.State) *Builder {
	b.transitions = append(b.transitions, domain.Transition{Trigger: trigger, From: from, To: to})
	return b
}

// Universal declares trigger as legal from every state except the initial one.
func (b *Builder) Universal(trigger domain.Trigger, to domain.State) *Builder {
	b.universal = append(b.universal, universalRule{trigger: trigger, to: to})
	return b
}

// Build validates the declarations and returns the compiled table.
// Every failure is reported, not only the first one.
func (b *Builder) Build() (*Table, error) {
	all := make([]domain.Transition, 0, len(b.transitions)+len(b.universal)*len(b.states))
	all = append(all, b.transitions...)
	for _, u := range b.universal {
		for _, s := range b.states {
			if s == b.initial {
				continue
			}
			all = append(all, domain.Transition{Trigger: u.trigger, From: s, To: u.to})
		}
	}

	t := &Table{
		initial: b.initial,
		states:  make(map[domain.State]struct{}, len(b.states)),
		order:   append([]domain.State(nil), b.states...),
		index:   make(map[domain.State]map[domain.Trigger]domain.State),
	}
	for _, s := range b.states {
		t.states[s] = struct{}{}
	}

	var errs []error
	if _, ok := t.states[b.initial]; !ok {
		errs = append(errs, &ValidationError{
			Transition: domain.Transition{From: b.initial},
			Reason:     "initial state is not declared",
		})
	}

	for _, tr := range all {
		switch {
		case tr.Trigger == "":
			errs = append(errs, &ValidationError{Transition: tr, Reason: "empty trigger name"})
			continue
		case !t.Has(tr.From):
			errs = append(errs, &ValidationError{Transition: tr, Reason: "undeclared source state"})
			continue
		case !t.Has(tr.To):
			errs = append(errs, &ValidationError{Transition: tr, Reason: "undeclared destination state"})
			continue
		}

		edges, ok := t.index[tr.From]
		if !ok {
			edges = make(map[domain.Trigger]domain.State)
			t.index[tr.From] = edges
		}
		if _, dup := edges[tr.Trigger]; dup {
			errs = append(errs, &ValidationError{Transition: tr, Reason: "trigger already declared for source state"})
			continue
		}
		edges[tr.Trigger] = tr.To
		t.transitions = append(t.transitions, tr)
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return t, nil
}
