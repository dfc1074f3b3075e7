package catalog

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultRetryMax     = 2
	defaultRetryBackoff = 100 * time.Millisecond
)

// RetryTransport retries replayable requests (GET/HEAD without a body) that
// fail at the transport level. Responses, including 5xx, are returned as is.
type RetryTransport struct {
	Base http.RoundTripper

	// RetryMax is the number of retries after the first attempt. Negative
	// disables retries; zero picks the default.
	RetryMax int

	// Backoff is the pause before each retry, multiplied by the attempt number.
	Backoff time.Duration
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	retries := t.RetryMax
	switch {
	case retries == 0:
		retries = defaultRetryMax
	case retries < 0:
		retries = 0
	}
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody)
	if !canRetry {
		retries = 0
	}
	backoff := t.Backoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * backoff)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}
		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}
