package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Clark-Hu/moviebrowse/internal/browse"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
	"github.com/Clark-Hu/moviebrowse/internal/filter"
)

// screen serialises writes from the input loop and session callbacks.
type screen struct {
	mu sync.Mutex
	w  io.Writer
}

func newScreen(w io.Writer) *screen {
	return &screen{w: w}
}

func (s *screen) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

func (s *screen) render(v browse.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch v.State {
	case browse.StateLoading:
		fmt.Fprintln(s.w, "Loading movies...")
		return
	case browse.StateError:
		fmt.Fprintf(s.w, "%s\nType :retry to try again.\n", v.Message)
		return
	}

	fmt.Fprintf(s.w, "\n%s\n", describeCriteria(v.Criteria))
	if v.Empty() {
		fmt.Fprintln(s.w, browse.EmptyMessage)
		return
	}
	for _, m := range v.Items {
		fmt.Fprintf(s.w, "  %-6s %s\n", m.ID, movieLine(m))
	}
	if v.Total > len(v.Items) {
		fmt.Fprintf(s.w, "  showing %d of %d\n", len(v.Items), v.Total)
	}
}

func (s *screen) details(m domain.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "\n%s\n", movieLine(m))
	if m.Director != nil {
		fmt.Fprintf(s.w, "  Director: %s\n", *m.Director)
	}
	if m.Rating != nil {
		fmt.Fprintf(s.w, "  Rating:   %.1f\n", *m.Rating)
	}
	if len(m.Cast) > 0 {
		fmt.Fprintf(s.w, "  Cast:     %s\n", strings.Join(m.Cast, ", "))
	}
	if m.Plot != nil {
		fmt.Fprintf(s.w, "  %s\n", *m.Plot)
	}
}

func (s *screen) genres(selected *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range filter.Genres {
		mark := " "
		if selected != nil && strings.EqualFold(*selected, g.ID) {
			mark = "*"
		}
		fmt.Fprintf(s.w, " %s %-10s %s\n", mark, g.ID, g.Name)
	}
}

func (s *screen) help() {
	s.printf(`Type to search titles and directors.
  :genre <id>   toggle a genre (:genre alone clears it)
  :genres       list genres
  :open <id>    show one movie
  :retry        fetch the list again
  :now          apply the search without waiting
  :quit         exit
`)
}

func describeCriteria(c domain.FilterCriteria) string {
	parts := make([]string, 0, 2)
	if q := strings.TrimSpace(c.Query); q != "" {
		parts = append(parts, fmt.Sprintf("search %q", q))
	}
	if c.Genre != nil {
		name := *c.Genre
		if g, ok := filter.LookupGenre(name); ok {
			name = g.Name
		}
		parts = append(parts, "genre "+name)
	}
	if len(parts) == 0 {
		return "All movies"
	}
	return "Movies matching " + strings.Join(parts, ", ")
}

func movieLine(m domain.Movie) string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.Year > 0 {
		fmt.Fprintf(&b, " (%d)", m.Year)
	}
	if len(m.Genre) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(m.Genre, ", "))
	}
	return b.String()
}
