package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
	"github.com/Clark-Hu/moviebrowse/internal/filter"
)

const maxListLimit = 100

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type movieListResponse struct {
	Items       []movieResponse `json:"items"`
	Total       int             `json:"total"`
	Stale       bool            `json:"stale"`
	RefreshedAt *time.Time      `json:"refreshedAt,omitempty"`
}

type movieResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Director *string  `json:"director,omitempty"`
	Year     int      `json:"year,omitempty"`
	Genre    []string `json:"genre,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Cast     []string `json:"cast,omitempty"`
	Plot     *string  `json:"plot,omitempty"`
	Poster   *string  `json:"poster,omitempty"`
}

type genreListResponse struct {
	Items []filter.Genre `json:"items"`
}

type browseQuery struct {
	Criteria domain.FilterCriteria
	Search   string
	Limit    int
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, genreListResponse{Items: filter.Genres})
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	query, err := buildBrowseQuery(r.URL.Query(), s.cfg.DisplayLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ctx, cancel := s.upstreamContext(r.Context())
	defer cancel()

	result, err := s.movies.List(ctx, query.Search)
	if err != nil {
		s.respondFetchError(w, "list movies", err)
		return
	}

	matched := filter.Apply(result.Movies, query.Criteria)
	shown := filter.Window(matched, query.Limit)

	items := make([]movieResponse, 0, len(shown))
	for _, movie := range shown {
		items = append(items, toMovieSummary(movie))
	}

	resp := movieListResponse{
		Items: items,
		Total: len(matched),
		Stale: result.Stale,
	}
	if result.Stale && !result.RefreshedAt.IsZero() {
		refreshed := result.RefreshedAt
		resp.RefreshedAt = &refreshed
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ctx, cancel := s.upstreamContext(r.Context())
	defer cancel()

	movie, err := s.movies.GetMovie(ctx, id)
	if err != nil {
		s.respondFetchError(w, "get movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

// buildBrowseQuery reads q, genre, search and limit. Blank values mean "no
// filter"; limit defaults to defaultLimit.
func buildBrowseQuery(query url.Values, defaultLimit int) (browseQuery, error) {
	bq := browseQuery{
		Criteria: domain.FilterCriteria{Query: strings.TrimSpace(query.Get("q"))},
		Search:   strings.TrimSpace(query.Get("search")),
		Limit:    defaultLimit,
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		bq.Criteria.Genre = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return bq, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
		}
		bq.Limit = limit
	}
	if bq.Limit <= 0 {
		bq.Limit = filter.DefaultWindow
	}
	return bq, nil
}

func (s *Server) upstreamContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.CatalogTimeoutSecs) * time.Second
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	// leave room for the client's retries
	return context.WithTimeout(parent, 2*timeout)
}

func (s *Server) respondFetchError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", catalog.UserMessage(err))
		return
	}
	var fe *catalog.FetchError
	if errors.As(err, &fe) {
		s.logger.Printf("%s: upstream failure: %v", op, err)
		s.respondJSON(w, http.StatusBadGateway, errorResponse{
			Code:      "UPSTREAM_ERROR",
			Message:   catalog.UserMessage(err),
			Retryable: true,
		})
		return
	}
	s.logger.Printf("%s error: %v", op, err)
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+op)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// toMovieSummary drops the detail-only fields from list rows.
func toMovieSummary(movie domain.Movie) movieResponse {
	resp := toMovieResponse(movie)
	resp.Cast = nil
	resp.Plot = nil
	return resp
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:       movie.ID.String(),
		Title:    movie.Title,
		Director: movie.Director,
		Year:     movie.Year,
		Genre:    []string(movie.Genre),
		Rating:   movie.Rating,
		Cast:     movie.Cast,
		Plot:     movie.Plot,
		Poster:   movie.Poster,
	}
}

func decodeIDParam(r *http.Request) (domain.MovieID, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return "", fmt.Errorf("missing id parameter")
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid id parameter")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("missing id parameter")
	}
	return domain.MovieID(id), nil
}
