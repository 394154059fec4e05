package model

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy. Per-item kinds wrap the underlying cause and are logged;
// only ErrConfig, ErrAllSourcesFailed and ErrProviderUnavailable abort a run.
var (
	ErrSourceQuery         = errors.New("source query failed")
	ErrScoring             = errors.New("scoring failed")
	ErrEnrichment          = errors.New("enrichment failed")
	ErrDelivery            = errors.New("delivery failed")
	ErrConfig              = errors.New("invalid configuration")
	ErrAllSourcesFailed    = errors.New("all source queries failed")
	ErrProviderUnavailable = errors.New("text-generation provider unavailable")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseError marks a well-delivered provider response that could not be
// interpreted. It never counts towards provider unavailability.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse response: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }
