package analysis

import "fmt"

// AnalysisError is returned when generation failed after the provider
// retries and the single fallback.
type AnalysisError struct {
	Mode    string
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s analysis: %s: %v", e.Mode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s analysis: %s", e.Mode, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}
