package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID is unknown or already ended.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidTrigger is returned when a trigger is not legal from the current screen.
var ErrInvalidTrigger = errors.New("invalid trigger")

// ErrDuplicateAllocation marks a broken queue numbering invariant.
var ErrDuplicateAllocation = errors.New("duplicate queue allocation")

// ErrUnknownDepartment is returned for departments missing from the catalog.
var ErrUnknownDepartment = errors.New("unknown department")

// ErrMissingDepartment is returned when a check-in cannot resolve a department.
var ErrMissingDepartment = errors.New("missing department")

// ErrTicketNotFound is returned when a queue number is neither waiting nor being served.
var ErrTicketNotFound = errors.New("ticket not found")

// InvalidTriggerError carries the rejected trigger and what was legal instead.
type InvalidTriggerError struct {
	State     State
	Trigger   Trigger
	Available []Trigger
}

func (e *InvalidTriggerError) Error() string {
	names := make([]string, len(e.Available))
	for i, t := range e.Available {
		names[i] = string(t)
	}
	return fmt.Sprintf("invalid trigger %q from %s (available: %s)", e.Trigger, e.State, strings.Join(names, ", "))
}

// Is reports whether target is ErrInvalidTrigger.
func (e *InvalidTriggerError) Is(target error) bool {
	return target == ErrInvalidTrigger
}

// DuplicateAllocationError is raised (as a panic value) when a counter store hands out
// a number other than the next one in sequence.
type DuplicateAllocationError struct {
	Department string
	Day        string
	Expected   int
	Got        int
}

func (e *DuplicateAllocationError) Error() string {
	return fmt.Sprintf("queue %s/%s: expected number %d, store returned %d", e.Department, e.Day, e.Expected, e.Got)
}

// Is reports whether target is ErrDuplicateAllocation.
func (e *DuplicateAllocationError) Is(target error) bool {
	return target == ErrDuplicateAllocation
}

// UserMessage maps caller-facing errors to the advisory text shown on the kiosk.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "your session expired, please check in again"
	case errors.Is(err, ErrInvalidTrigger):
		return "please restart this step"
	case errors.Is(err, ErrUnknownDepartment), errors.Is(err, ErrMissingDepartment):
		return "please select a department"
	default:
		return "something went wrong, please ask the staff for help"
	}
}
