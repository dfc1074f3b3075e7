package catalog

import (
	"encoding/json"
	"testing"

	"github.com/Clark-Hu/moviebrowse/internal/domain"
	"github.com/Clark-Hu/moviebrowse/internal/filter"
)

func FuzzDecodeMovieList(f *testing.F) {
	f.Add(`[{"id":1,"title":"Alien","director":"Ridley Scott","year":1979,"genre":["Horror","Sci-Fi"]}]`)
	f.Add(`[{"id":"2","title":"Amelie","genre":"Romance"}]`)
	f.Add(`[{"id":3,"title":"Heat","genre":[null,4]}]`)
	f.Add(`[]`)

	f.Fuzz(func(t *testing.T, payload string) {
		var movies []domain.Movie
		if err := json.Unmarshal([]byte(payload), &movies); err != nil {
			return
		}
		genre := "horror"
		// whatever decodes must be filterable without panicking
		_ = filter.Apply(movies, domain.FilterCriteria{Query: "a", Genre: &genre})
	})
}
