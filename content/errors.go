package content

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrGroupNotFound  = errors.New("group not found")
	ErrPresetNotFound = errors.New("generation preset not found")

	// ErrInvalidInherit is returned when seed or config inheritance walks
	// off the top of the group tree without finding a literal value.
	ErrInvalidInherit = errors.New("seed inheritance does not terminate at a literal")

	// ErrCycle is returned when a reparent would make a group its own ancestor.
	ErrCycle = errors.New("reparent would create a cycle")
)

// ValidationError rejects a malformed record before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
