package quality

import (
	"testing"

	"github.com/cesargomez89/quarry/internal/domain"
)

func completeBusiness(placeID string) domain.Business {
	rating := 4.2
	return domain.Business{
		PlaceID:     placeID,
		Name:        "Shop " + placeID,
		FullAddress: "1 Main St",
		Phone:       "+16135551234",
		Website:     "https://example.com",
		Rating:      &rating,
		Hours:       "Monday: 9 AM–5 PM",
	}
}

func TestScoreEmpty(t *testing.T) {
	r := Score(nil)
	if r.TotalRecords != 0 || r.OverallScore != 0 || r.Complete != 0 {
		t.Errorf("Expected zero report, got %+v", r)
	}
	if len(r.FieldCompletion) != len(Checklist) {
		t.Errorf("Expected every checklist field in completion map, got %v", r.FieldCompletion)
	}
	if r.Duplicates == nil {
		t.Error("Expected empty, non-nil duplicates")
	}
}

func TestScoreAllCompleteIsExactly100(t *testing.T) {
	r := Score([]domain.Business{completeBusiness("a"), completeBusiness("b")})
	if r.OverallScore != 100 {
		t.Errorf("Expected 100, got %v", r.OverallScore)
	}
	if r.Complete != 2 || r.Incomplete != 0 {
		t.Errorf("complete=%d incomplete=%d", r.Complete, r.Incomplete)
	}
	if r.Distribution.Excellent != 2 {
		t.Errorf("Expected 2 excellent, got %+v", r.Distribution)
	}
	for f, rate := range r.FieldCompletion {
		if rate != 1 {
			t.Errorf("%s completion = %v, want 1", f, rate)
		}
	}
}

func TestScoreMissingValues(t *testing.T) {
	partial := completeBusiness("b")
	partial.Phone = "N/A"
	partial.Website = "   "
	partial.Rating = nil

	empty := domain.Business{PlaceID: "c"}

	r := Score([]domain.Business{completeBusiness("a"), partial, empty})

	if r.TotalRecords != 3 {
		t.Fatalf("Expected 3 records, got %d", r.TotalRecords)
	}
	// (100 + 50 + 0) / 3
	if r.OverallScore != 50 {
		t.Errorf("Expected overall 50, got %v", r.OverallScore)
	}
	if r.MissingFields[FieldPhone] != 2 || r.MissingFields[FieldName] != 1 {
		t.Errorf("unexpected missing fields %v", r.MissingFields)
	}
	if r.FieldCompletion[FieldRating] != 0.33 {
		t.Errorf("Expected rating completion 0.33, got %v", r.FieldCompletion[FieldRating])
	}
	if r.Complete != 1 || r.Incomplete != 2 {
		t.Errorf("complete=%d incomplete=%d", r.Complete, r.Incomplete)
	}
	want := Distribution{Excellent: 1, Fair: 1, Poor: 1}
	if r.Distribution != want {
		t.Errorf("distribution = %+v, want %+v", r.Distribution, want)
	}
}

func TestScoreBounds(t *testing.T) {
	sets := [][]domain.Business{
		{{}},
		{{Name: "x"}},
		{completeBusiness("a"), {}},
		{completeBusiness("a")},
	}
	for i, set := range sets {
		r := Score(set)
		if r.OverallScore < 0 || r.OverallScore > 100 {
			t.Errorf("set %d: score %v out of bounds", i, r.OverallScore)
		}
	}
}

func TestFindDuplicates(t *testing.T) {
	records := []domain.Business{
		completeBusiness("p1"),
		completeBusiness("p1"),
		completeBusiness("p2"),
		{Name: "no id"},
		{Name: "no id"},
	}
	groups := FindDuplicates(records)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %v", groups)
	}
	if groups[0].PlaceID != "p1" || groups[0].Count != 2 {
		t.Errorf("unexpected group %+v", groups[0])
	}

	r := Score(records)
	if r.DuplicateRecords != 2 {
		t.Errorf("Expected 2 duplicate records, got %d", r.DuplicateRecords)
	}
}

func TestRecordScore(t *testing.T) {
	b := completeBusiness("a")
	if got := RecordScore(&b); got != 100 {
		t.Errorf("Expected 100, got %v", got)
	}
	b.Hours = ""
	if got := RecordScore(&b); got != 83.33 {
		t.Errorf("Expected 83.33, got %v", got)
	}
}
