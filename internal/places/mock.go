package places

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/cesargomez89/quarry/internal/domain"
)

// MockProvider returns deterministic listings derived from the search text.
// It is used when no API key is configured in development and in tests.
type MockProvider struct {
	Results    int
	SearchErr  error
	DetailErrs map[string]error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Results: 5}
}

func (p *MockProvider) Search(ctx context.Context, text string, maxResults int) ([]PlaceSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.SearchErr != nil {
		return nil, p.SearchErr
	}
	n := p.Results
	if maxResults > 0 && n > maxResults {
		n = maxResults
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	out := make([]PlaceSummary, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, PlaceSummary{
			ID:   fmt.Sprintf("mock-%08x-%d", seed, i+1),
			Name: fmt.Sprintf("%s #%d", text, i+1),
			Rank: i + 1,
		})
	}
	return out, nil
}

func (p *MockProvider) Details(ctx context.Context, placeID string) (*domain.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := p.DetailErrs[placeID]; ok {
		return nil, err
	}
	rating := 4.5
	count := 120
	slug := strings.ReplaceAll(placeID, "-", "")
	return &domain.Business{
		PlaceID:         placeID,
		Name:            "Mock Business " + placeID,
		StreetAddress:   "1 Main St",
		City:            "Mockville",
		ProvinceState:   "MO",
		PostalCode:      "00000",
		Country:         "US",
		FullAddress:     "1 Main St, Mockville, MO 00000, USA",
		Phone:           "(555) 010-0000",
		Website:         "https://" + slug + ".example.com",
		GoogleMapsURL:   "https://maps.example.com/?cid=" + slug,
		Rating:          &rating,
		UserRatingCount: &count,
		Hours:           "Monday: 9:00 AM – 5:00 PM",
		Categories:      "point_of_interest, establishment",
		BusinessStatus:  "OPERATIONAL",
	}, nil
}
