package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// mockMovie keeps the upstream wire shape as-is. id and genre stay raw so the
// mock can reproduce numeric ids and odd genre values.
type mockMovie struct {
	ID       json.RawMessage `json:"id"`
	Title    string          `json:"title"`
	Director *string         `json:"director,omitempty"`
	Year     int             `json:"year,omitempty"`
	Genre    json.RawMessage `json:"genre,omitempty"`
	Rating   *float64        `json:"rating,omitempty"`
	Cast     []string        `json:"cast,omitempty"`
	Plot     *string         `json:"plot,omitempty"`
	Poster   *string         `json:"poster,omitempty"`
}

func (m mockMovie) idString() string {
	var s string
	if err := json.Unmarshal(m.ID, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(m.ID))
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "testdata/movies.json", "path to mock data file")
		delay   = flag.Duration("delay", 0, "artificial latency added to every response")
		failN = flag.Int("fail-every", 0, "answer every Nth request with 503 (0 disables)")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var movies []mockMovie
	if err := json.Unmarshal(file, &movies); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	r := chi.NewRouter()
	if *logReqs {
		r.Use(middleware.Logger)
	}
	r.Use(latency(*delay))
	r.Use(failEvery(*failN))

	r.Get("/movies", func(w http.ResponseWriter, r *http.Request) {
		search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
		out := make([]mockMovie, 0, len(movies))
		for _, m := range movies {
			if search == "" || strings.Contains(strings.ToLower(m.Title), search) {
				out = append(out, m)
			}
		}
		writeJSON(w, out)
	})
	r.Get("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		for _, m := range movies {
			if m.idString() == id {
				writeJSON(w, m)
				return
			}
		}
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	addr := ":" + *port
	log.Printf("mock catalog listening on %s with %d movies", addr, len(movies))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func latency(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func failEvery(n int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		var count atomic.Int64
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if count.Add(1)%int64(n) == 0 {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
