// Package store owns the Postgres pool behind the catalog snapshot mirror.
package store

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options controls connection-pool behaviour. Zero values keep the pgxpool
// defaults.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *log.Logger
}

// Store wraps a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

var errNotInitialized = fmt.Errorf("store not initialized")

// New opens the pool and pings it before returning.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	opts.apply(cfg)
	opts.Logger.Printf("store: opening pool to %s (max=%d, min=%d, stmt_cache=%d)",
		cfg.ConnConfig.Host, cfg.MaxConns, cfg.MinConns, cfg.ConnConfig.StatementCacheCapacity)

	st := &Store{logger: opts.Logger, opts: opts}
	connCtx, cancel := st.bounded(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	st.pool = pool
	st.logger.Println("store: snapshot database ready")
	return st, nil
}

func (o Options) apply(cfg *pgxpool.Config) {
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}
	if o.StatementCacheCapacity > 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = o.StatementCacheCapacity
	}
}

// bounded applies ConnTimeout to ctx when one is configured.
func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ConnTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.ConnTimeout)
	}
	return context.WithCancel(ctx)
}

// Close releases the pool. It is safe on a nil Store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Println("store: closing connection pool")
	s.pool.Close()
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errNotInitialized
	}
	checkCtx, cancel := s.bounded(ctx)
	defer cancel()
	return s.pool.Ping(checkCtx)
}

// Migrate applies every *.up.sql file under dir of fsys in name order. The
// statements are expected to be idempotent.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS, dir string) error {
	if s == nil || s.pool == nil {
		return errNotInitialized
	}
	files, err := fs.Glob(fsys, dir+"/*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(files)
	for _, name := range files {
		payload, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(payload)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		s.logger.Printf("store: applied migration %s", name)
	}
	return nil
}

// Pool exposes the underlying pgx pool for repositories.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Stats returns pool statistics, or nil on an unopened Store.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}
