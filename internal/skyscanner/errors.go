package skyscanner

import (
	"errors"
	"fmt"
)

var ErrMalformedResponse = errors.New("malformed response")

type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureStatus
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "status"
	case FailureMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// SearchError is returned for any flight search that did not produce a usable
// response. Empty result sets are not errors; see Result.
type SearchError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *SearchError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("unexpected status %d: %v", e.StatusCode, e.Err)
	case FailureMalformed:
		return e.Err.Error()
	default:
		return "request failed: " + e.Err.Error()
	}
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

func malformed(err error) *SearchError {
	return &SearchError{Kind: FailureMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
}
