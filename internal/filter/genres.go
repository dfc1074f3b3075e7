package filter

import "strings"

// Genre is one selectable entry of the genre bar. ID is what gets matched
// against a movie's genre labels.
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Genres is the fixed set offered for selection, in display order.
var Genres = []Genre{
	{ID: "action", Name: "Action"},
	{ID: "adventure", Name: "Adventure"},
	{ID: "animation", Name: "Animation"},
	{ID: "comedy", Name: "Comedy"},
	{ID: "crime", Name: "Crime"},
	{ID: "drama", Name: "Drama"},
	{ID: "fantasy", Name: "Fantasy"},
	{ID: "horror", Name: "Horror"},
	{ID: "romance", Name: "Romance"},
	{ID: "sci-fi", Name: "Sci-Fi"},
	{ID: "thriller", Name: "Thriller"},
}

// LookupGenre finds a catalog entry by id, ignoring case.
func LookupGenre(id string) (Genre, bool) {
	id = strings.TrimSpace(id)
	for _, g := range Genres {
		if strings.EqualFold(g.ID, id) {
			return g, true
		}
	}
	return Genre{}, false
}
