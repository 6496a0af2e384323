package pipeline

import "fmt"

// PreconditionError is returned before any I/O when the invocation cannot
// start: a missing credential or an invalid option.
type PreconditionError struct {
	Message string
	Cause   error
}

func (e *PreconditionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PreconditionError) Unwrap() error {
	return e.Cause
}
