package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamTransport covers network failures and non-2xx responses.
	ErrUpstreamTransport = errors.New("upstream transport failure")
	// ErrMalformedRecord marks a record whose fields cannot be mapped to a display key.
	ErrMalformedRecord = errors.New("malformed upstream record")
	// ErrRenderSizeExceeded is advisory: a chat table hit the character budget.
	ErrRenderSizeExceeded = errors.New("rendered table exceeds size budget")
)

// DataError reports an upstream payload that could not be used.
type DataError struct {
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream data: %s: %v", e.Reason, e.Err)
	}
	return "upstream data: " + e.Reason
}

func (e *DataError) Unwrap() error { return e.Err }

// ValidationError rejects caller input before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
