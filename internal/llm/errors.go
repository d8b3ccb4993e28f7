package llm

import "errors"

// ErrInvalidResponse is the user-facing message for any unusable model output.
var ErrInvalidResponse = errors.New("The AI returned an invalid response. Please try again.") //nolint:staticcheck // shown to users verbatim

// InvocationError wraps a failed model call. Its message is the underlying
// error's message, unchanged.
type InvocationError struct {
	Op  string
	Err error
}

func (e *InvocationError) Error() string { return e.Err.Error() }

func (e *InvocationError) Unwrap() error { return e.Err }

// ResponseParseError reports model output that was empty, not JSON, or did
// not match the requested schema. Raw holds the offending text for logging;
// it never appears in the error message.
type ResponseParseError struct {
	Op    string
	Raw   string
	Cause error
}

func (e *ResponseParseError) Error() string { return ErrInvalidResponse.Error() }

func (e *ResponseParseError) Unwrap() error { return ErrInvalidResponse }
