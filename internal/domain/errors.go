package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidURL marks input that cannot be parsed into a scan target
	ErrInvalidURL = errors.New("invalid url")

	// ErrLookupTimeout marks an external lookup that ran out of time
	ErrLookupTimeout = errors.New("lookup timed out")

	// ErrFeedUnavailable marks a failed blocklist feed download
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrNotFound is returned by storage lookups with no match
	ErrNotFound = errors.New("not found")
)

// DetectorFailure records why a detector could not produce a score
type DetectorFailure struct {
	Detector string
	Cause    error
}

func (e *DetectorFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Detector, e.Cause)
}

func (e *DetectorFailure) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a deadline or network timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLookupTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureNote renders a lookup error for a DetectorResult
func FailureNote(what string, err error) string {
	if IsTimeout(err) {
		return fmt.Sprintf("%s timed out", what)
	}
	return fmt.Sprintf("%s failed: %v", what, err)
}
