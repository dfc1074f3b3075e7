package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MovieID identifies a movie. The remote service emits either JSON numbers or
// strings; both normalise to the same textual form.
type MovieID string

// UnmarshalJSON accepts `1`, `"1"` and `null`.
func (id *MovieID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("movie id: %w", err)
		}
		*id = MovieID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("movie id: %w", err)
	}
	*id = MovieID(n.String())
	return nil
}

func (id MovieID) String() string { return string(id) }

// Genres is the ordered list of genre labels on a movie. Payloads where the
// field is not an array decode to nil rather than failing the whole record;
// scalar entries are kept in their textual form.
type Genres []string

// UnmarshalJSON implements json.Unmarshaler.
func (g *Genres) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*g = nil
		return nil
	}
	out := make(Genres, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(item))
	}
	*g = out
	return nil
}

// Movie is a record returned by the remote movie service. List responses carry
// the summary fields; the detail response fills in the rest.
type Movie struct {
	ID       MovieID  `json:"id"`
	Title    string   `json:"title"`
	Director *string  `json:"director,omitempty"`
	Year     int      `json:"year,omitempty"`
	Genre    Genres   `json:"genre,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Cast     []string `json:"cast,omitempty"`
	Plot     *string  `json:"plot,omitempty"`
	Poster   *string  `json:"poster,omitempty"`
}

// FilterCriteria is the search text plus the optional genre selection.
type FilterCriteria struct {
	Query string
	Genre *string
}

// IsZero reports whether no filter is active.
func (c FilterCriteria) IsZero() bool {
	return strings.TrimSpace(c.Query) == "" && (c.Genre == nil || strings.TrimSpace(*c.Genre) == "")
}
