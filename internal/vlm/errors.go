package vlm

import "fmt"

// RequestError wraps a transport-level failure (dial, TLS, body read).
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "request error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ProviderError is returned when the endpoint responds with a non-2xx
// status.
//
// RawResponse holds the provider response body bytes and must never
// include API keys.
type ProviderError struct {
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("model request failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model request failed: %s", e.Message)
}

// TruncationError signals that the model hit its token limit
// (finish_reason "length"). The partial answer is not usable as a
// normal completion and must be surfaced as a distinct failure.
type TruncationError struct {
	Partial string
}

func (e *TruncationError) Error() string {
	return "response truncated: token limit reached"
}
