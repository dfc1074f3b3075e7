package catalog

import (
	"context"
	"errors"
	"fmt"
)

// FetchError is any failure retrieving data from the remote movie service:
// transport errors, non-success statuses and malformed payloads.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.URL != "":
		return fmt.Sprintf("catalog: %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.URL != "":
		return fmt.Sprintf("catalog: %s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Canceled reports whether the fetch was abandoned by its caller rather than
// failing on its own.
func (e *FetchError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// UserMessage is the text shown next to a retry action.
func UserMessage(err error) string {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return "Something went wrong. Please try again."
	}
	switch {
	case errors.Is(fe, ErrNotFound):
		return "This movie could not be found."
	case errors.Is(fe, context.DeadlineExceeded):
		return "The movie service took too long to respond. Please try again."
	case fe.StatusCode >= 500:
		return "The movie service is unavailable right now. Please try again."
	case fe.StatusCode != 0 && fe.StatusCode < 300:
		return "The movie service sent an unexpected response. Please try again."
	case fe.StatusCode != 0:
		return fmt.Sprintf("The movie service rejected the request (status %d).", fe.StatusCode)
	default:
		return "Could not reach the movie service. Check your connection and try again."
	}
}
