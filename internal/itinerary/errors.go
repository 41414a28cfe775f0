package itinerary

import (
	"errors"
	"fmt"
)

// ErrGeocoderDisabled is returned by Resolve when no geocoder is configured.
var ErrGeocoderDisabled = errors.New("address lookup is not enabled")

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamTransientError is an HTTP status failure from a provider. It is
// eligible for retry.
type UpstreamTransientError struct {
	Provider   string
	StatusCode int
}

func (e *UpstreamTransientError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.StatusCode)
}

// UpstreamDataError is a well-formed HTTP response whose payload cannot be used.
type UpstreamDataError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *UpstreamDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *UpstreamDataError) Unwrap() error { return e.Err }

// UpstreamError is a non-retryable failure reaching a provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// AggregationError wraps the failure that stopped a context request. Source
// names the lookup that failed ("places" or "weather").
type AggregationError struct {
	Source string
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to fetch context: %s: %v", e.Source, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
