// Package places talks to the places search API and turns its results into
// business records.
package places

import (
	"context"

	"github.com/cesargomez89/quarry/internal/domain"
)

// PlaceSummary is one search hit. Rank is its 1-based position in the results.
type PlaceSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type Provider interface {
	Search(ctx context.Context, text string, maxResults int) ([]PlaceSummary, error)
	Details(ctx context.Context, placeID string) (*domain.Business, error)
}
