package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/moviebrowse/internal/domain"
)

// DefaultBaseURL is the public movie service.
const DefaultBaseURL = "https://www.freetestapi.com/api/v1"

const maxResponseBody = 8 << 20 // 8 MiB

// ErrNotFound is returned when upstream cannot find the requested movie.
var ErrNotFound = errors.New("catalog: not found")

// Client defines the contract for querying the remote movie service.
type Client interface {
	ListMovies(ctx context.Context, search string) ([]domain.Movie, error)
	GetMovie(ctx context.Context, id domain.MovieID) (domain.Movie, error)
}

// Options tunes the HTTP client. Zero values pick defaults.
type Options struct {
	Timeout  time.Duration
	RetryMax int
	Logger   *log.Logger
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	logger  *log.Logger

	mu      sync.Mutex
	group   singleflight.Group
	flights map[string]*flight
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(baseURL string, opts Options) (*HTTPClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("parse catalog url: unsupported scheme %q", parsed.Scheme)
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPClient{
		baseURL: parsed,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &RetryTransport{Base: base, RetryMax: opts.RetryMax},
		},
		logger: logger,
	}, nil
}

// ListMovies fetches the movie list, forwarding search to the service when set.
// The result is returned as the service sent it.
func (c *HTTPClient) ListMovies(ctx context.Context, search string) ([]domain.Movie, error) {
	search = strings.TrimSpace(search)
	endpoint := c.endpoint("movies")
	if search != "" {
		q := endpoint.Query()
		q.Set("search", search)
		endpoint.RawQuery = q.Encode()
	}

	v, err := c.shared(ctx, "list movies", "list:"+search, func(ctx context.Context) (interface{}, error) {
		var movies []domain.Movie
		if err := c.getJSON(ctx, "list movies", endpoint, &movies); err != nil {
			return nil, err
		}
		if movies == nil {
			movies = []domain.Movie{}
		}
		return movies, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMovies(v.([]domain.Movie)), nil
}

// GetMovie fetches one full movie record.
func (c *HTTPClient) GetMovie(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	raw := strings.TrimSpace(id.String())
	if raw == "" {
		return domain.Movie{}, &FetchError{Op: "get movie", Err: fmt.Errorf("empty movie id")}
	}
	endpoint := c.endpoint("movies", raw)

	v, err := c.shared(ctx, "get movie", "get:"+raw, func(ctx context.Context) (interface{}, error) {
		var movie domain.Movie
		if err := c.getJSON(ctx, "get movie", endpoint, &movie); err != nil {
			return nil, err
		}
		return movie, nil
	})
	if err != nil {
		return domain.Movie{}, err
	}
	return v.(domain.Movie), nil
}

// shared coalesces identical in-flight fetches. The fetch runs on a context
// of its own that is cancelled once every caller waiting on it has given up;
// a caller arriving after that starts a fresh request instead of joining the
// abandoned one. Each caller waits on its own ctx.
func (c *HTTPClient) shared(ctx context.Context, op, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	f, w, ch := c.join(ctx, key, fn)
	defer c.leave(key, f, w)

	select {
	case <-ctx.Done():
		return nil, &FetchError{Op: op, Err: ctx.Err()}
	case res := <-ch:
		return res.Val, res.Err
	}
}

// flight is the shared state of one coalesced fetch.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters map[*waiter]struct{}
}

type waiter struct {
	ctx context.Context
}

func (f *flight) live() bool {
	for w := range f.waiters {
		if w.ctx.Err() == nil {
			return true
		}
	}
	return false
}

// join registers ctx on the flight for key and starts or joins its call. The
// call is registered under c.mu so nobody can join a flight being abandoned.
func (c *HTTPClient) join(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (*flight, *waiter, <-chan singleflight.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flights == nil {
		c.flights = make(map[string]*flight)
	}
	f := c.flights[key]
	if f != nil && !f.live() {
		c.abandonLocked(key, f)
		f = nil
	}
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel, waiters: make(map[*waiter]struct{})}
		c.flights[key] = f
	}
	w := &waiter{ctx: ctx}
	f.waiters[w] = struct{}{}

	fctx := f.ctx
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fn(fctx)
	})
	return f, w, ch
}

func (c *HTTPClient) leave(key string, f *flight, w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(f.waiters, w)
	if len(f.waiters) == 0 {
		c.abandonLocked(key, f)
	}
}

func (c *HTTPClient) abandonLocked(key string, f *flight) {
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

func (c *HTTPClient) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	u.RawQuery = ""
	return &u
}

func (c *HTTPClient) getJSON(ctx context.Context, op string, endpoint *url.URL, dst interface{}) error {
	target := endpoint.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &FetchError{Op: op, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &FetchError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Printf("catalog: unexpected status %d for %s", resp.StatusCode, target)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return &FetchError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("upstream returned %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst); err != nil {
		return &FetchError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func cloneMovies(movies []domain.Movie) []domain.Movie {
	out := make([]domain.Movie, len(movies))
	copy(out, movies)
	return out
}
