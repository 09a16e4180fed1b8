package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when no upstream produced usable token data
	ErrNoData = errors.New("no token data available")
	// ErrMalformedPayload marks an upstream response that could not be parsed
	ErrMalformedPayload = errors.New("malformed upstream payload")
	// ErrNotFound marks an upstream lookup that returned no results
	ErrNotFound = errors.New("not found")
)

// UpstreamError wraps a failed call to an external data source
type UpstreamError struct {
	Source string
	Op     string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NoDataError is returned when every upstream failed for a query
type NoDataError struct {
	Query  string
	Causes []error
}

func (e *NoDataError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("no data for %q", e.Query)
	}
	return fmt.Sprintf("no data for %q: %v", e.Query, errors.Join(e.Causes...))
}

func (e *NoDataError) Is(target error) bool {
	return target == ErrNoData
}

func (e *NoDataError) Unwrap() []error {
	return e.Causes
}
