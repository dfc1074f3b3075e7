// Package browse holds the state behind a movie list screen: the most recent
// fetch, the current search and genre selection, and the filtered result.
package browse

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/debounce"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
	"github.com/Clark-Hu/moviebrowse/internal/filter"
)

// DefaultDebounce is the idle time before criteria changes are applied.
const DefaultDebounce = 300 * time.Millisecond

// EmptyMessage is shown when filtering leaves nothing.
const EmptyMessage = "No movies found. Try a different search or genre."

var (
	// ErrSuperseded is returned by Load when a newer Load was issued before
	// this one finished. Its result was discarded.
	ErrSuperseded = errors.New("browse: fetch superseded")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("browse: session closed")
)

// State is the screen lifecycle.
type State int

const (
	StateLoading State = iota
	StateError
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is an immutable snapshot for rendering.
type View struct {
	State    State
	Message  string
	Criteria domain.FilterCriteria
	// Items is the display window of the filtered list.
	Items []domain.Movie
	// Total counts all filtered movies, before windowing.
	Total int
	// Loaded counts the movies of the last successful fetch.
	Loaded int
	// Revision increases with every change; OnChange never sees it go back.
	Revision uint64
}

// Empty reports whether a ready list has no results.
func (v View) Empty() bool { return v.State == StateReady && v.Total == 0 }

// Options configures a Session.
type Options struct {
	// Search is forwarded to the movie service on every fetch.
	Search   string
	Window   int
	Debounce time.Duration
	Logger   *log.Logger
	// OnChange receives every new View. It must not call Close.
	OnChange func(View)
}

// Session is safe for concurrent use.
type Session struct {
	repo     catalog.Client
	search   string
	window   int
	logger   *log.Logger
	onChange func(View)
	debounce *debounce.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	notifyMu sync.Mutex
	notified uint64

	mu          sync.Mutex
	closed      bool
	gen         uint64
	cancelFetch context.CancelFunc
	state       State
	message     string
	movies      []domain.Movie
	criteria    domain.FilterCriteria
	filtered    []domain.Movie
	rev         uint64
}

// NewSession constructs a Session in the loading state. Nothing is fetched
// until Load is called.
func NewSession(repo catalog.Client, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	window := opts.Window
	if window == 0 {
		window = filter.DefaultWindow
	}
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		repo:     repo,
		search:   strings.TrimSpace(opts.Search),
		window:   window,
		logger:   logger,
		onChange: opts.OnChange,
		debounce: debounce.New(delay),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateLoading,
	}
}

// Load fetches the movie list. Issuing a new Load cancels the one in flight;
// only the most recently issued fetch may replace the list.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	s.gen++
	gen := s.gen
	fetchCtx, cancel := s.scope(ctx)
	s.cancelFetch = cancel
	if len(s.movies) == 0 || s.state == StateError {
		s.state = StateLoading
		s.message = ""
	}
	s.rev++
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	movies, err := s.repo.ListMovies(fetchCtx, s.search)
	cancel()

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case gen != s.gen:
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.cancelFetch = nil
	if err != nil {
		s.state = StateError
		s.message = catalog.UserMessage(err)
		s.rev++
		view = s.viewLocked()
		s.mu.Unlock()
		s.logger.Printf("browse: load movies failed: %v", err)
		s.notify(view)
		return err
	}
	s.movies = movies
	s.state = StateReady
	s.message = ""
	s.filtered = filter.Apply(s.movies, s.criteria)
	s.rev++
	view = s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// Retry re-issues the list fetch.
func (s *Session) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

// SetQuery updates the search text. The list is re-filtered after the
// debounce delay.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.criteria.Query = query
	s.mu.Unlock()
	s.scheduleRefilter()
}

// SetGenre selects a genre; nil or blank clears the selection.
func (s *Session) SetGenre(genre *string) {
	s.mu.Lock()
	s.criteria.Genre = normalizeGenre(genre)
	s.mu.Unlock()
	s.scheduleRefilter()
}

// ToggleGenre selects id, or clears the selection when id is already selected.
// It returns the resulting selection.
func (s *Session) ToggleGenre(id string) *string {
	s.mu.Lock()
	next := normalizeGenre(&id)
	if next != nil && s.criteria.Genre != nil && strings.EqualFold(*s.criteria.Genre, *next) {
		next = nil
	}
	s.criteria.Genre = next
	s.mu.Unlock()
	s.scheduleRefilter()
	if next == nil {
		return nil
	}
	selected := *next
	return &selected
}

// Refilter applies the current criteria now, dropping any pending debounce.
func (s *Session) Refilter() {
	s.debounce.Flush(s.refilter)
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Details fetches the full record for id. The fetch is cancelled when the
// session closes.
func (s *Session) Details(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Movie{}, ErrClosed
	}
	s.mu.Unlock()

	fetchCtx, cancel := s.scope(ctx)
	defer cancel()
	return s.repo.GetMovie(fetchCtx, id)
}

// Close cancels the pending debounce and any fetch in flight. After Close
// returns OnChange is not called again.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.mu.Unlock()

	s.debounce.Stop()
	s.cancel()

	// wait out a notification already in progress
	s.notifyMu.Lock()
	s.notifyMu.Unlock()
}

func (s *Session) scheduleRefilter() {
	s.debounce.Trigger(s.refilter)
}

func (s *Session) refilter() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.filtered = filter.Apply(s.movies, s.criteria)
	s.rev++
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}

// scope derives a context that ends with either ctx or the session.
func (s *Session) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	scoped, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return scoped, func() {
		stop()
		cancel()
	}
}

func (s *Session) viewLocked() View {
	items := filter.Window(s.filtered, s.window)
	out := make([]domain.Movie, len(items))
	copy(out, items)
	return View{
		State:    s.state,
		Message:  s.message,
		Criteria: copyCriteria(s.criteria),
		Items:    out,
		Total:    len(s.filtered),
		Loaded:   len(s.movies),
		Revision: s.rev,
	}
}

func (s *Session) notify(view View) {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || view.Revision <= s.notified {
		return
	}
	s.notified = view.Revision
	s.onChange(view)
}

func normalizeGenre(genre *string) *string {
	if genre == nil {
		return nil
	}
	g := strings.TrimSpace(*genre)
	if g == "" {
		return nil
	}
	return &g
}

func copyCriteria(c domain.FilterCriteria) domain.FilterCriteria {
	out := domain.FilterCriteria{Query: c.Query}
	if c.Genre != nil {
		g := *c.Genre
		out.Genre = &g
	}
	return out
}
