package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/moviebrowse/db"
	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/config"
	httpserver "github.com/Clark-Hu/moviebrowse/internal/http"
	"github.com/Clark-Hu/moviebrowse/internal/repository"
	"github.com/Clark-Hu/moviebrowse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[moviebrowse] ", log.LstdFlags|log.Lshortfile)

	upstream, err := catalog.NewHTTPClient(cfg.CatalogURL, catalog.Options{
		Timeout:  time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
		RetryMax: cfg.CatalogRetryMax,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("init catalog client: %v", err)
	}

	var (
		st     *store.Store
		movies *repository.MoviesRepository
	)
	if cfg.MirrorEnabled() {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		st, err = store.New(dbCtx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer st.Close()

		if err := st.Migrate(dbCtx, db.Migrations, "migrations"); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		movies = repository.New(st).Movies
	} else {
		logger.Printf("DB_URL not set; snapshot mirror disabled")
	}

	mirror := repository.NewMirror(upstream, movies, logger)
	server := httpserver.New(cfg, st, mirror, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}
