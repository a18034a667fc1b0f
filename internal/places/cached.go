package places

import (
	"context"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
)

type Cache interface {
	GetCachedPlace(ctx context.Context, placeID string) (*domain.Business, error)
	SetCachedPlace(ctx context.Context, b *domain.Business, ttl time.Duration) error
	ClearPlaceCache(ctx context.Context) error
}

// CachedProvider caches place details. Search results are never cached since
// rank order is what a new version records.
type CachedProvider struct {
	provider Provider
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedProvider(provider Provider, cache Cache, cacheTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *CachedProvider) Search(ctx context.Context, text string, maxResults int) ([]PlaceSummary, error) {
	return c.provider.Search(ctx, text, maxResults)
}

func (c *CachedProvider) Details(ctx context.Context, placeID string) (*domain.Business, error) {
	cached, err := c.cache.GetCachedPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	b, err := c.provider.Details(ctx, placeID)
	if err != nil {
		return nil, err
	}
	_ = c.cache.SetCachedPlace(ctx, b, c.cacheTTL)
	return b, nil
}

func (c *CachedProvider) ClearCache(ctx context.Context) error {
	return c.cache.ClearPlaceCache(ctx)
}
