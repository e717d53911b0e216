package events

import "fmt"

// ValidationError reports a malformed inbound payload or an invalid
// registration argument. The Field names what failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}
