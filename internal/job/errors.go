package job

import "fmt"

// CollectionError is returned when a posting yields no usable content.
type CollectionError struct {
	URL     string
	Message string
	Cause   error
}

func (e *CollectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("collect job posting %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("collect job posting %s: %s", e.URL, e.Message)
}

func (e *CollectionError) Unwrap() error {
	return e.Cause
}
