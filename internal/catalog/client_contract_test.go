package catalog

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"
)

// TestHTTPClientSmoke checks that the client can parse at least one record
// from a live service. Set CATALOG_URL to run it.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("CATALOG_URL")
	if baseURL == "" {
		t.Skip("CATALOG_URL not provided")
	}
	client, err := NewHTTPClient(baseURL, Options{Timeout: 5 * time.Second, Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	movies, err := client.ListMovies(ctx, "")
	if err != nil {
		t.Fatalf("list movies: %v", err)
	}
	if len(movies) == 0 || movies[0].Title == "" {
		t.Fatalf("unexpected movie payload: %+v", movies)
	}

	movie, err := client.GetMovie(ctx, movies[0].ID)
	if err != nil {
		t.Fatalf("get movie %s: %v", movies[0].ID, err)
	}
	if movie.ID != movies[0].ID {
		t.Fatalf("get movie id = %s, want %s", movie.ID, movies[0].ID)
	}
}
