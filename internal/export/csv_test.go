package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/cesargomez89/quarry/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	rating := 4.5
	yes, no := true, false
	records := []domain.Business{
		{
			PlaceID:        "p1",
			Name:           "Cafe, \"The\" Corner",
			Rating:         &rating,
			Delivery:       &yes,
			DineIn:         &no,
			GooglePosition: 1,
			CustomPosition: 3,
		},
		{PlaceID: "p2", Name: "Bakery"},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	first := rows[1]
	checks := map[string]string{
		"place_id":        "p1",
		"business_name":   "Cafe, \"The\" Corner",
		"rating":          "4.5",
		"delivery":        "true",
		"dine_in":         "false",
		"takeout":         "",
		"google_position": "1",
		"custom_position": "3",
	}
	for col, want := range checks {
		if got := first[idx[col]]; got != want {
			t.Errorf("%s = %q, want %q", col, got, want)
		}
	}
	if got := rows[2][idx["rating"]]; got != "" {
		t.Errorf("unknown rating should be empty, got %q", got)
	}
}

func TestHeaderIsStable(t *testing.T) {
	h := Header()
	if h[0] != "google_position" || h[2] != "place_id" || h[3] != "business_name" {
		t.Errorf("unexpected leading columns %v", h[:4])
	}
	seen := map[string]bool{}
	for _, c := range h {
		if seen[c] {
			t.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
}
