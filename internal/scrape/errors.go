package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoResponse marks a navigation that completed without producing a
// response object. Retryable.
var ErrNoResponse = errors.New("navigation returned no response")

// NetworkError wraps a failed navigation. Retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// BadStatusError marks a navigation that returned a non-200 document
// response. Retryable.
type BadStatusError struct {
	URL    string
	Status int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Status, e.URL)
}

// TimeoutExceededError is returned once a page's retry loop has used up its
// wall-clock budget. It carries the last underlying failure.
type TimeoutExceededError struct {
	Service string
	URL     string
	Elapsed time.Duration
	Last    error
}

func (e *TimeoutExceededError) Error() string {
	return fmt.Sprintf("load budget exceeded for %s after %s (%s): %v", e.URL, e.Elapsed, e.Service, e.Last)
}

func (e *TimeoutExceededError) Unwrap() error {
	return e.Last
}

// UnknownMonthError aborts a site's extraction: an integer day followed by an
// unrecognized month abbreviation means the listing layout changed under us,
// and continuing would mis-date every remaining entry.
type UnknownMonthError struct {
	Token string
}

func (e *UnknownMonthError) Error() string {
	return fmt.Sprintf("unrecognized month abbreviation %q", e.Token)
}
