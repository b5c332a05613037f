package flow

import (
	"fmt"

	"github.com/aretw0/kiosk/pkg/domain"
)

// ValidationError represents a single rejected transition declaration.
type ValidationError struct {
	Transition domain.Transition
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transition %s: %s -> %s: %s", e.Transition.Trigger, e.Transition.From, e.Transition.To, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d invalid transitions:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
