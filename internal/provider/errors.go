package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sony/gobreaker"
)

// ErrorKind classifies source-level failures.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindTimeout     ErrorKind = "timeout"
	KindStatus      ErrorKind = "status"
	KindDecode      ErrorKind = "decode"
	KindBreakerOpen ErrorKind = "breaker_open"
	KindRateLimited ErrorKind = "rate_limited"
	KindCanceled    ErrorKind = "canceled"
	KindInternal    ErrorKind = "internal" // adapter panic
)

// SourceError is the only error type adapters return.
// The aggregator treats any SourceError as "no data" for that source.
type SourceError struct {
	Source string
	Kind   ErrorKind
	Status int // HTTP status for KindStatus
	Err    error
}

func (e *SourceError) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("source %s: unexpected status %d", e.Source, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
	default:
		return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
	}
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// AsSourceError converts any error into a SourceError for source.
// Existing SourceErrors keep their kind; the source name is filled if empty.
func AsSourceError(source string, err error) *SourceError {
	if err == nil {
		return nil
	}

	var se *SourceError
	if errors.As(err, &se) {
		if se.Source == "" {
			se.Source = source
		}
		return se
	}

	return &SourceError{Source: source, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindBreakerOpen
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
