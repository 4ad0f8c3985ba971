package graph

import "testing"

func f64(v float64) *float64 { return &v }

func TestClampHops(t *testing.T) {
	tests := []struct{ in, want int }{{0, 1}, {-2, 1}, {1, 1}, {3, 3}, {7, 3}}
	for _, tc := range tests {
		if got := ClampHops(tc.in); got != tc.want {
			t.Errorf("ClampHops(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSortPapersNewestFirst_MissingDatesLast(t *testing.T) {
	papers := []Paper{
		{ArxivID: "a", PublishedDate: ""},
		{ArxivID: "b", PublishedDate: "2021-03-01"},
		{ArxivID: "c", PublishedDate: "2023-01-15"},
		{ArxivID: "d", PublishedDate: "2021-03-01T10:00:00"},
	}
	SortPapersNewestFirst(papers)

	want := []string{"c", "d", "b", "a"}
	for i, id := range want {
		if papers[i].ArxivID != id {
			t.Fatalf("position %d: got %s, want %s (%v)", i, papers[i].ArxivID, id, papers)
		}
	}
}

func TestSortPapersNewestFirst_NonISODatesLast(t *testing.T) {
	papers := []Paper{
		{ArxivID: "a", PublishedDate: "2023-05-01"},
		{ArxivID: "b", PublishedDate: "unknown"},
		{ArxivID: "c", PublishedDate: "2024-01-10"},
		{ArxivID: "d", PublishedDate: "N/A"},
		{ArxivID: "e", PublishedDate: ""},
		{ArxivID: "f", PublishedDate: "2024"},
	}
	SortPapersNewestFirst(papers)

	want := []string{"c", "f", "a", "b", "d", "e"}
	for i, id := range want {
		if papers[i].ArxivID != id {
			t.Fatalf("position %d: got %s, want %s (%v)", i, papers[i].ArxivID, id, papers)
		}
	}
}

func TestDateKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2023-05-01T10:00:00Z", "2023-05-01"},
		{" 2023-05", "2023-05"},
		{"2023", "2023"},
		{"unknown", ""},
		{"N/A", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := DateKey(tc.in); got != tc.want {
			t.Errorf("DateKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSortRelated_HopsThenMagnitude(t *testing.T) {
	stars := []RelatedStar{
		{SourceID: "x", Hops: 2, MagnitudeG: f64(5)},
		{SourceID: "y", Hops: 1},
		{SourceID: "z", Hops: 1, MagnitudeG: f64(12)},
		{SourceID: "w", Hops: 1, MagnitudeG: f64(9)},
	}
	SortRelated(stars)

	want := []string{"w", "z", "y", "x"}
	for i, id := range want {
		if stars[i].SourceID != id {
			t.Fatalf("position %d: got %s, want %s", i, stars[i].SourceID, id)
		}
	}
}

func TestEdgeEndpoints(t *testing.T) {
	from, to := MentionedIn.Endpoints()
	if from != KindStar || to != KindPaper {
		t.Errorf("MENTIONED_IN: got %s->%s", from, to)
	}
	from, to = Cites.Endpoints()
	if from != KindPaper || to != KindPaper {
		t.Errorf("CITES: got %s->%s", from, to)
	}
}
