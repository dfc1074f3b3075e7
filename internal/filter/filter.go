// Package filter narrows a fetched movie list by search text and genre.
package filter

import (
	"strings"

	"github.com/Clark-Hu/moviebrowse/internal/domain"
)

// DefaultWindow is how many filtered results a list surface shows.
const DefaultWindow = 20

// Apply returns the movies matching criteria, in input order. The input slice
// is never modified. Movies missing the field a filter inspects do not match
// that filter. A genre or query that is empty after trimming whitespace counts
// as no filter, so a blank genre selection lists every movie.
func Apply(movies []domain.Movie, criteria domain.FilterCriteria) []domain.Movie {
	genre := ""
	if criteria.Genre != nil {
		genre = strings.TrimSpace(*criteria.Genre)
	}
	query := strings.ToLower(strings.TrimSpace(criteria.Query))

	result := make([]domain.Movie, 0, len(movies))
	for _, movie := range movies {
		if genre != "" && !HasGenre(movie, genre) {
			continue
		}
		if query != "" && !matchesQuery(movie, query) {
			continue
		}
		result = append(result, movie)
	}
	return result
}

// HasGenre reports whether movie lists genre, ignoring case.
func HasGenre(movie domain.Movie, genre string) bool {
	for _, g := range movie.Genre {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// query is already lowercased.
func matchesQuery(movie domain.Movie, query string) bool {
	if strings.Contains(strings.ToLower(movie.Title), query) {
		return true
	}
	return movie.Director != nil && strings.Contains(strings.ToLower(*movie.Director), query)
}

// Window returns at most n leading movies. n <= 0 means no limit.
func Window(movies []domain.Movie, n int) []domain.Movie {
	if n <= 0 || len(movies) <= n {
		return movies
	}
	return movies[:n]
}
