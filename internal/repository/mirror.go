package repository

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
)

// snapshotStore is the slice of MoviesRepository the mirror relies on.
type snapshotStore interface {
	ReplaceSnapshot(ctx context.Context, movies []domain.Movie) (int, error)
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	GetByID(ctx context.Context, id domain.MovieID) (domain.Movie, error)
}

// ListResult is a movie list plus where it came from.
type ListResult struct {
	Movies []domain.Movie
	// Stale is set when the upstream failed and the stored copy was served.
	Stale       bool
	RefreshedAt time.Time
}

// Mirror fronts the remote movie service. Unfiltered list responses are
// stored; when the service fails the stored copy is served instead. A nil
// store turns the mirror into a pass-through.
type Mirror struct {
	upstream catalog.Client
	store    snapshotStore
	logger   *log.Logger
	now      func() time.Time
}

// NewMirror wires the upstream client to an optional snapshot store.
func NewMirror(upstream catalog.Client, movies *MoviesRepository, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	m := &Mirror{upstream: upstream, logger: logger, now: time.Now}
	if movies != nil {
		m.store = movies
	}
	return m
}

// Enabled reports whether a snapshot store is attached.
func (m *Mirror) Enabled() bool { return m.store != nil }

// List fetches from upstream. Searches are passed through untouched and never
// stored; only the full list is.
func (m *Mirror) List(ctx context.Context, search string) (ListResult, error) {
	search = strings.TrimSpace(search)
	movies, err := m.upstream.ListMovies(ctx, search)
	if err == nil {
		if search == "" && m.store != nil {
			if _, saveErr := m.store.ReplaceSnapshot(ctx, movies); saveErr != nil {
				m.logger.Printf("mirror: store snapshot failed: %v", saveErr)
			}
		}
		return ListResult{Movies: movies, RefreshedAt: m.now().UTC()}, nil
	}

	if search != "" || m.store == nil || ctx.Err() != nil {
		return ListResult{}, err
	}
	snap, snapErr := m.store.LoadSnapshot(ctx)
	if snapErr != nil {
		if !errors.Is(snapErr, ErrNotFound) {
			m.logger.Printf("mirror: load snapshot failed: %v", snapErr)
		}
		return ListResult{}, err
	}
	m.logger.Printf("mirror: upstream failed, serving snapshot from %s: %v", snap.RefreshedAt.Format(time.RFC3339), err)
	return ListResult{Movies: snap.Movies, Stale: true, RefreshedAt: snap.RefreshedAt}, nil
}

// ListMovies implements catalog.Client.
func (m *Mirror) ListMovies(ctx context.Context, search string) ([]domain.Movie, error) {
	res, err := m.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return res.Movies, nil
}

// GetMovie implements catalog.Client. A stored summary record stands in for
// the detail record only when the upstream itself is failing; an upstream 404
// is passed through.
func (m *Mirror) GetMovie(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	movie, err := m.upstream.GetMovie(ctx, id)
	if err == nil || m.store == nil || errors.Is(err, catalog.ErrNotFound) || ctx.Err() != nil {
		return movie, err
	}
	stored, storeErr := m.store.GetByID(ctx, id)
	if storeErr != nil {
		return domain.Movie{}, err
	}
	m.logger.Printf("mirror: upstream failed for movie %s, serving stored summary: %v", id, err)
	return stored, nil
}
