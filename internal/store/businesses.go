package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
)

// MergeBusinesses upserts businesses into the main collection keyed by place
// id. Fields present in the new record overwrite stored ones; fields it omits
// are kept. Records without a place id are counted as failed.
func (s *Store) MergeBusinesses(ctx context.Context, businesses []domain.Business) (saved, failed int, err error) {
	now := time.Now().UTC()
	docs := make([]docstore.Doc, 0, len(businesses))
	for _, b := range businesses {
		if b.PlaceID == "" {
			failed++
			continue
		}
		merged, mergeErr := s.mergeBusiness(ctx, b, now)
		if mergeErr != nil {
			failed++
			continue
		}
		docs = append(docs, docstore.Doc{ID: b.PlaceID, Data: merged})
	}

	written, err := s.docs.BatchPut(ctx, constants.BusinessesCollection, docs, s.batchSize)
	return written, failed + len(docs) - written, err
}

func (s *Store) mergeBusiness(ctx context.Context, b domain.Business, now time.Time) (map[string]json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	err := s.docs.Get(ctx, constants.BusinessesCollection, b.PlaceID, &merged)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if errors.Is(err, domain.ErrNotFound) {
		b.CreatedAt = &now
	} else {
		b.CreatedAt = nil
	}
	b.UpdatedAt = &now

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode business %s: %w", b.PlaceID, err)
	}
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(data, &incoming); err != nil {
		return nil, err
	}
	for k, v := range incoming {
		merged[k] = v
	}
	delete(merged, "_id")
	return merged, nil
}

func (s *Store) GetBusiness(ctx context.Context, placeID string) (*domain.Business, error) {
	b := &domain.Business{}
	if err := s.docs.Get(ctx, constants.BusinessesCollection, placeID, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) UpdateBusinessPosition(ctx context.Context, placeID string, position int) (*domain.Business, error) {
	b, err := s.GetBusiness(ctx, placeID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b.CustomPosition = position
	b.UpdatedAt = &now
	if err := s.docs.Put(ctx, constants.BusinessesCollection, placeID, b); err != nil {
		return nil, err
	}
	return b, nil
}

type cachedPlace struct {
	ID        string          `json:"id"`
	Business  domain.Business `json:"business"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// GetCachedPlace returns a cached detail lookup, or nil when absent or expired.
func (s *Store) GetCachedPlace(ctx context.Context, placeID string) (*domain.Business, error) {
	var row cachedPlace
	err := s.docs.Get(ctx, constants.PlaceCacheCollection, placeID, &row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if row.ExpiresAt != nil && time.Now().After(*row.ExpiresAt) {
		_ = s.docs.Delete(ctx, constants.PlaceCacheCollection, placeID)
		return nil, nil
	}

	return &row.Business, nil
}

// SetCachedPlace stores a detail lookup. A zero ttl never expires.
func (s *Store) SetCachedPlace(ctx context.Context, b *domain.Business, ttl time.Duration) error {
	row := cachedPlace{ID: b.PlaceID, Business: *b}
	if ttl > 0 {
		t := time.Now().Add(ttl)
		row.ExpiresAt = &t
	}
	return s.docs.Put(ctx, constants.PlaceCacheCollection, b.PlaceID, row)
}

func (s *Store) ClearPlaceCache(ctx context.Context) error {
	rows, err := docstore.QueryAs[cachedPlace](ctx, s.docs, constants.PlaceCacheCollection, nil)
	if err != nil {
		return err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return s.docs.Delete(ctx, constants.PlaceCacheCollection, ids...)
}
