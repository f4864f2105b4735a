package llm

import "fmt"

// UpstreamError is returned when the completion API could not be reached or
// answered with a non-2xx status.
type UpstreamError struct {
	// StatusCode is zero for transport failures.
	StatusCode int
	Status     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned %s", e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the completion API answered 2xx with a body
// that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing upstream response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes why an inbound request was rejected before it
// reached the upstream.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid chat request: " + e.Reason
}
