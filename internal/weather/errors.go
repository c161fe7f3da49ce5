package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCoordinates is returned when a point plan lacks lat or lon.
	ErrMissingCoordinates = errors.New("point geometry requires both lat and lon")

	// ErrMissingBBox is returned when a region plan has no usable bbox.
	ErrMissingBBox = errors.New("region geometry requires a bbox of four numbers")

	// ErrUpstreamTimeout marks an upstream call that exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream call timed out")
)

// ValidationError is a malformed request, rejected before any fetch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// UpstreamFetchError is a non-success status or transport failure. StatusCode
// is zero when no response was received.
type UpstreamFetchError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed: status %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("upstream fetch failed for %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
