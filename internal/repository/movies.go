package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviebrowse/internal/domain"
)

// MoviesRepository keeps the last fetched movie list so it can be served when
// the remote service is unreachable.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    title,
    director,
    release_year,
    genre,
    rating,
    cast_members,
    plot,
    poster
`

// Snapshot is the stored copy of one upstream list response.
type Snapshot struct {
	Movies      []domain.Movie
	RefreshedAt time.Time
}

// ReplaceSnapshot swaps the stored list for movies, keeping their order.
// Duplicate ids keep their first occurrence.
func (r *MoviesRepository) ReplaceSnapshot(ctx context.Context, movies []domain.Movie) (int, error) {
	rows := make([][]interface{}, 0, len(movies))
	seen := make(map[domain.MovieID]struct{}, len(movies))
	for _, m := range movies {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		rows = append(rows, []interface{}{
			m.ID.String(),
			len(rows),
			m.Title,
			m.Director,
			m.Year,
			nullableStrings(m.Genre),
			m.Rating,
			nullableStrings(m.Cast),
			m.Plot,
			m.Poster,
		})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serialise writers; readers keep seeing the previous snapshot until commit
	if _, err := tx.Exec(ctx, `LOCK TABLE catalog_movies IN EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("lock snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM catalog_movies`); err != nil {
		return 0, fmt.Errorf("clear snapshot: %w", err)
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"catalog_movies"},
		[]string{"id", "position", "title", "director", "release_year", "genre", "rating", "cast_members", "plot", "poster"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy snapshot: %w", err)
	}
	const upsert = `
        INSERT INTO catalog_snapshot (singleton, movie_count, refreshed_at)
        VALUES (TRUE, $1, now())
        ON CONFLICT (singleton)
        DO UPDATE SET movie_count = EXCLUDED.movie_count, refreshed_at = EXCLUDED.refreshed_at
    `
	if _, err := tx.Exec(ctx, upsert, copied); err != nil {
		return 0, fmt.Errorf("record snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return int(copied), nil
}

// LoadSnapshot returns the stored list in its original order, or ErrNotFound
// when nothing was stored yet.
func (r *MoviesRepository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.pool.QueryRow(ctx, `SELECT refreshed_at FROM catalog_snapshot WHERE singleton`).Scan(&snap.RefreshedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("load snapshot header: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM catalog_movies ORDER BY position`, movieColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	snap.Movies = []domain.Movie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Movies = append(snap.Movies, movie)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	snap.RefreshedAt = snap.RefreshedAt.UTC()
	return snap, nil
}

// GetByID fetches one stored movie.
func (r *MoviesRepository) GetByID(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMovie(row rowScanner) (domain.Movie, error) {
	var (
		movie domain.Movie
		id    string
		genre []string
		cast  []string
	)
	if err := row.Scan(
		&id,
		&movie.Title,
		&movie.Director,
		&movie.Year,
		&genre,
		&movie.Rating,
		&cast,
		&movie.Plot,
		&movie.Poster,
	); err != nil {
		return domain.Movie{}, err
	}
	movie.ID = domain.MovieID(id)
	if genre != nil {
		movie.Genre = domain.Genres(genre)
	}
	movie.Cast = cast
	return movie, nil
}

// nil stays NULL so "no genre field" survives the round trip.
func nullableStrings(values []string) interface{} {
	if values == nil {
		return nil
	}
	return values
}
