package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Validation and authorization failures. All of them reject the operation
// before any external state changes.
var (
	// ErrTableNotFound is returned when the referenced table does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrPlayerNotFound is returned when the reported player is not registered.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrNotAParticipant is returned when a non-staff reporter did not play
	// in the referenced table.
	ErrNotAParticipant = errors.New("reporter is not a participant of the table")
	// ErrInvalidCount is returned when the race or repick count is out of range.
	ErrInvalidCount = errors.New("count out of range")
	// ErrCountBelowThreshold is returned when the kind requires a minimum
	// incident count and the report is below it.
	ErrCountBelowThreshold = errors.New("count below kind threshold")
	// ErrNotAuthorized is returned when the actor lacks standing for the action.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAlreadyHandled is returned when a request was already resolved by a
	// concurrent approval or refusal. Informational, not fatal.
	ErrAlreadyHandled = errors.New("request already handled")
)

// PartialApplicationError reports that some but not all downstream penalty
// calls in a multi-step approval succeeded. IDs holds one entry per
// attempted call; nil entries are the failed ones.
type PartialApplicationError struct {
	IDs []*int64
}

func (e *PartialApplicationError) Error() string {
	applied := make([]string, 0, len(e.IDs))
	failed := 0
	for _, id := range e.IDs {
		if id == nil {
			failed++
			continue
		}
		applied = append(applied, fmt.Sprintf("%d", *id))
	}
	if len(applied) == 0 {
		return fmt.Sprintf("all %d penalty applications failed", failed)
	}
	return fmt.Sprintf("%d of %d penalty applications failed (applied ids: %s)",
		failed, len(e.IDs), strings.Join(applied, ", "))
}
