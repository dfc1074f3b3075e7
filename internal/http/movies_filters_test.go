package httpserver

import (
	"net/url"
	"testing"
)

func TestBuildBrowseQuery(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantQuery string
		wantGenre string
		wantLimit int
		wantErr   bool
	}{
		{name: "empty uses default limit", raw: "", wantLimit: 20},
		{name: "query trimmed", raw: "q=%20alien%20", wantQuery: "alien", wantLimit: 20},
		{name: "genre set", raw: "genre=Sci-Fi", wantGenre: "Sci-Fi", wantLimit: 20},
		{name: "blank genre ignored", raw: "genre=%20%20", wantLimit: 20},
		{name: "explicit limit", raw: "limit=50", wantLimit: 50},
		{name: "max limit", raw: "limit=100", wantLimit: 100},
		{name: "limit too large", raw: "limit=101", wantErr: true},
		{name: "zero limit", raw: "limit=0", wantErr: true},
		{name: "non numeric limit", raw: "limit=ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got, err := buildBrowseQuery(values, 20)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Criteria.Query != tt.wantQuery {
				t.Fatalf("Query = %q, want %q", got.Criteria.Query, tt.wantQuery)
			}
			if tt.wantGenre == "" && got.Criteria.Genre != nil {
				t.Fatalf("Genre = %q, want none", *got.Criteria.Genre)
			}
			if tt.wantGenre != "" && (got.Criteria.Genre == nil || *got.Criteria.Genre != tt.wantGenre) {
				t.Fatalf("Genre = %v, want %q", got.Criteria.Genre, tt.wantGenre)
			}
			if got.Limit != tt.wantLimit {
				t.Fatalf("Limit = %d, want %d", got.Limit, tt.wantLimit)
			}
		})
	}
}

func TestBuildBrowseQueryFallsBackToWindow(t *testing.T) {
	got, err := buildBrowseQuery(url.Values{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 20 {
		t.Fatalf("Limit = %d, want 20", got.Limit)
	}
}
