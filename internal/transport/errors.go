package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies the outcome of a fetch for the scheduler's retry and
// failure policy.
type ErrorKind int

const (
	// ErrorKindNone means the fetch succeeded.
	ErrorKindNone ErrorKind = iota
	// ErrorKindHTTP means the server answered with a non-2xx status.
	ErrorKindHTTP
	// ErrorKindCancelled means the operation was aborted by the caller.
	ErrorKindCancelled
	// ErrorKindOther covers transport-level failures (DNS, reset,
	// per-attempt timeout).
	ErrorKindOther
)

// HTTPError is returned when the server answers with a non-2xx status after
// the retry budget is spent. Body carries the (trimmed) response body for
// the human-readable failure report.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Classify maps an error returned by Fetcher.FetchBlob to its ErrorKind.
// Only an explicit caller abort counts as cancelled: a deadline error here
// is a per-attempt HTTP timeout (sessions run without deadlines), which is
// a transport failure the session must treat as fatal, not swallow.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCancelled
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorKindHTTP
	}
	return ErrorKindOther
}
