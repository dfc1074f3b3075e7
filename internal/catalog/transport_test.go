package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("[]")),
		Header:     make(http.Header),
		Request:    r,
	}
}

func TestRetryTransport_RetriesTransportErrors(t *testing.T) {
	attempts := 0
	tr := &RetryTransport{
		RetryMax: 2,
		Backoff:  time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return okResponse(r), nil
		}),
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/movies", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}
	resp.Body.Close()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryTransport_GivesUp(t *testing.T) {
	attempts := 0
	tr := &RetryTransport{
		RetryMax: 1,
		Backoff:  time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.New("boom")
		}),
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/movies", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetryTransport_DoesNotRetryStatus(t *testing.T) {
	attempts := 0
	tr := &RetryTransport{
		Backoff: time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			resp := okResponse(r)
			resp.StatusCode = http.StatusServiceUnavailable
			return resp, nil
		}),
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/movies", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error: %v", err)
	}
	resp.Body.Close()
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryTransport_NonReplayable(t *testing.T) {
	attempts := 0
	tr := &RetryTransport{
		RetryMax: 3,
		Backoff:  time.Millisecond,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.New("boom")
		}),
	}
	req, _ := http.NewRequest(http.MethodPost, "http://example.com/movies", strings.NewReader("{}"))
	_, _ = tr.RoundTrip(req)
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryTransport_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	tr := &RetryTransport{
		RetryMax: 5,
		Backoff:  time.Hour,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			cancel()
			return nil, errors.New("boom")
		}),
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com/movies", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
