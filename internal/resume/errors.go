package resume

import "fmt"

// IngestError is returned when a resume cannot be read or decoded.
type IngestError struct {
	Path    string
	Message string
	Cause   error
}

func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingest resume %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("ingest resume %s: %s", e.Path, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}
