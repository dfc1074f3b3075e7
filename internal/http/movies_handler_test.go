package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/config"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
	"github.com/Clark-Hu/moviebrowse/internal/repository"
)

type fakeSource struct {
	result   repository.ListResult
	listErr  error
	movies   map[domain.MovieID]domain.Movie
	getErr   error
	searches []string
}

func (f *fakeSource) List(ctx context.Context, search string) (repository.ListResult, error) {
	f.searches = append(f.searches, search)
	return f.result, f.listErr
}

func (f *fakeSource) GetMovie(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	if f.getErr != nil {
		return domain.Movie{}, f.getErr
	}
	m, ok := f.movies[id]
	if !ok {
		return domain.Movie{}, &catalog.FetchError{Op: "get movie", StatusCode: http.StatusNotFound, Err: catalog.ErrNotFound}
	}
	return m, nil
}

func strPtr(s string) *string { return &s }

func sampleMovies() []domain.Movie {
	return []domain.Movie{
		{ID: "1", Title: "Alien", Director: strPtr("Ridley Scott"), Year: 1979, Genre: domain.Genres{"Horror", "Sci-Fi"}, Plot: strPtr("In space.")},
		{ID: "2", Title: "Amelie", Director: strPtr("Jean-Pierre Jeunet"), Year: 2001, Genre: domain.Genres{"Comedy", "Romance"}},
		{ID: "3", Title: "Blade Runner", Director: strPtr("Ridley Scott"), Year: 1982, Genre: domain.Genres{"Sci-Fi"}},
	}
}

func buildTestServer(tb testing.TB, src MovieSource) *Server {
	tb.Helper()
	cfg := config.Config{
		Port:               "0",
		CatalogTimeoutSecs: 1,
		DisplayLimit:       20,
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
	}
	srv := New(cfg, nil, src, log.New(io.Discard, "", 0))
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	return srv
}

func doGet(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) movieListResponse {
	t.Helper()
	var resp movieListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func titles(items []movieResponse) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestListMovies_FiltersByQueryAndGenre(t *testing.T) {
	src := &fakeSource{result: repository.ListResult{Movies: sampleMovies()}}
	srv := buildTestServer(t, src)

	rec := doGet(t, srv, "/movies?q=ridley&genre=sci-fi")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeList(t, rec)
	assert.Equal(t, []string{"Alien", "Blade Runner"}, titles(resp.Items))
	assert.Equal(t, 2, resp.Total)
	assert.False(t, resp.Stale)
	assert.Nil(t, resp.RefreshedAt)
	assert.Nil(t, resp.Items[0].Plot, "list rows omit detail fields")
}

func TestListMovies_EmptyMatchIsNotAnError(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{result: repository.ListResult{Movies: sampleMovies()}})

	rec := doGet(t, srv, "/movies?q=zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"stale":false}`, rec.Body.String())
}

func TestListMovies_ForwardsSearch(t *testing.T) {
	src := &fakeSource{}
	srv := buildTestServer(t, src)

	rec := doGet(t, srv, "/movies?search=%20alien%20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alien"}, src.searches)
}

func TestListMovies_LimitWindowsButTotalCountsAll(t *testing.T) {
	movies := make([]domain.Movie, 0, 30)
	for i := 0; i < 30; i++ {
		movies = append(movies, domain.Movie{ID: domain.MovieID(strconv.Itoa(i)), Title: "Movie " + strconv.Itoa(i)})
	}
	srv := buildTestServer(t, &fakeSource{result: repository.ListResult{Movies: movies}})

	resp := decodeList(t, doGet(t, srv, "/movies"))
	assert.Len(t, resp.Items, 20)
	assert.Equal(t, 30, resp.Total)
	assert.Equal(t, "Movie 0", resp.Items[0].Title)

	resp = decodeList(t, doGet(t, srv, "/movies?limit=5"))
	assert.Len(t, resp.Items, 5)
}

func TestListMovies_StaleSnapshot(t *testing.T) {
	refreshed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := buildTestServer(t, &fakeSource{result: repository.ListResult{Movies: sampleMovies(), Stale: true, RefreshedAt: refreshed}})

	resp := decodeList(t, doGet(t, srv, "/movies"))
	assert.True(t, resp.Stale)
	require.NotNil(t, resp.RefreshedAt)
	assert.True(t, resp.RefreshedAt.Equal(refreshed))
}

func TestListMovies_BadLimit(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{})
	for _, raw := range []string{"0", "-1", "101", "abc"} {
		rec := doGet(t, srv, "/movies?limit="+raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestListMovies_UpstreamFailure(t *testing.T) {
	src := &fakeSource{listErr: &catalog.FetchError{Op: "list movies", StatusCode: 503, Err: errors.New("upstream returned 503")}}
	srv := buildTestServer(t, src)

	rec := doGet(t, srv, "/movies")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UPSTREAM_ERROR", resp.Code)
	assert.True(t, resp.Retryable)
	assert.Contains(t, resp.Message, "unavailable")
}

func TestListMovies_UnexpectedError(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{listErr: errors.New("boom")})
	rec := doGet(t, srv, "/movies")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetMovie(t *testing.T) {
	src := &fakeSource{movies: map[domain.MovieID]domain.Movie{
		"1":     sampleMovies()[0],
		"a b/c": {ID: "a b/c", Title: "Odd"},
	}}
	srv := buildTestServer(t, src)

	rec := doGet(t, srv, "/movies/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var movie movieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movie))
	assert.Equal(t, "Alien", movie.Title)
	require.NotNil(t, movie.Plot)
	assert.Equal(t, "In space.", *movie.Plot)

	rec = doGet(t, srv, "/movies/a%20b%2Fc")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doGet(t, srv, "/movies/404")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestGetMovie_UpstreamFailure(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{getErr: &catalog.FetchError{Op: "get movie", Err: errors.New("connection refused")}})
	rec := doGet(t, srv, "/movies/1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not reach the movie service")
}

func TestListGenres(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{})
	rec := doGet(t, srv, "/genres")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Items)
	assert.Equal(t, "action", resp.Items[0].ID)
}

func TestHealthzWithoutStore(t *testing.T) {
	srv := buildTestServer(t, &fakeSource{})
	rec := doGet(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","mirror":false}`, rec.Body.String())
}
