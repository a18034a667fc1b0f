package places

import (
	"context"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
)

// Extractor runs one search and fetches details for every hit, one call at a
// time. Call spacing is left to the provider's HTTP client.
type Extractor struct {
	provider   Provider
	maxResults int
	logger     *logger.Logger
}

func NewExtractor(provider Provider, maxResults int, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{
		provider:   provider,
		maxResults: maxResults,
		logger:     log.WithComponent("extractor"),
	}
}

// Extract returns the businesses found for keyword in search rank order.
// A place whose details fail transiently is skipped; a fatal error aborts
// the whole extraction.
func (e *Extractor) Extract(ctx context.Context, keyword string) ([]domain.Business, error) {
	hits, err := e.provider.Search(ctx, keyword, e.maxResults)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Search complete", "keyword", keyword, "results", len(hits))

	out := make([]domain.Business, 0, len(hits))
	for i, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := e.provider.Details(ctx, hit.ID)
		if err != nil {
			if domain.IsFatal(err) {
				return nil, err
			}
			e.logger.Warn("Skipping place", "place_id", hit.ID, "error", err)
			continue
		}

		rank := hit.Rank
		if rank <= 0 {
			rank = i + 1
		}
		if b.PlaceID == "" {
			b.PlaceID = hit.ID
		}
		if b.Name == "" {
			b.Name = hit.Name
		}
		b.GooglePosition = rank
		b.CustomPosition = rank
		b.SearchQuery = keyword
		out = append(out, *b)
	}

	if skipped := len(hits) - len(out); skipped > 0 {
		e.logger.Info("Extraction finished with skipped places", "keyword", keyword, "kept", len(out), "skipped", skipped)
	}
	return out, nil
}
