package store

import (
	"context"
	"sort"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
)

func (s *Store) PutVersion(ctx context.Context, v *domain.QueryVersion) error {
	return s.docs.Put(ctx, constants.VersionsCollection, v.ID, v)
}

func (s *Store) GetVersion(ctx context.Context, id string) (*domain.QueryVersion, error) {
	v := &domain.QueryVersion{}
	if err := s.docs.Get(ctx, constants.VersionsCollection, id, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListVersions returns the versions of a query, highest number first.
func (s *Store) ListVersions(ctx context.Context, queryID string) ([]*domain.QueryVersion, error) {
	versions, err := docstore.QueryAs[*domain.QueryVersion](ctx, s.docs, constants.VersionsCollection, docstore.Filter{"query_id": queryID})
	if err != nil {
		return nil, err
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}

// LatestVersions returns every version of a query flagged as latest. More
// than one means two writers raced on SetLatest.
func (s *Store) LatestVersions(ctx context.Context, queryID string) ([]*domain.QueryVersion, error) {
	return docstore.QueryAs[*domain.QueryVersion](ctx, s.docs, constants.VersionsCollection,
		docstore.Filter{"query_id": queryID, "is_latest": true})
}

func (s *Store) DeleteVersions(ctx context.Context, ids ...string) error {
	return s.docs.Delete(ctx, constants.VersionsCollection, ids...)
}

// PutVersionBusinesses writes businesses under a version in batches.
func (s *Store) PutVersionBusinesses(ctx context.Context, businesses []domain.VersionBusiness) (int, error) {
	docs := make([]docstore.Doc, len(businesses))
	for i := range businesses {
		b := &businesses[i]
		if b.ID == "" {
			b.ID = domain.VersionBusinessID(b.VersionID, b.PlaceID)
		}
		docs[i] = docstore.Doc{ID: b.ID, Data: b}
	}
	return s.docs.BatchPut(ctx, constants.VersionBusinessesCollection, docs, s.batchSize)
}

func (s *Store) ListVersionBusinesses(ctx context.Context, versionID string) ([]domain.VersionBusiness, error) {
	return docstore.QueryAs[domain.VersionBusiness](ctx, s.docs, constants.VersionBusinessesCollection,
		docstore.Filter{"version_id": versionID})
}

func (s *Store) GetVersionBusiness(ctx context.Context, versionID, placeID string) (*domain.VersionBusiness, error) {
	b := &domain.VersionBusiness{}
	if err := s.docs.Get(ctx, constants.VersionBusinessesCollection, domain.VersionBusinessID(versionID, placeID), b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) PutVersionBusiness(ctx context.Context, b *domain.VersionBusiness) error {
	return s.docs.Put(ctx, constants.VersionBusinessesCollection, b.ID, b)
}

// DeleteVersionBusinesses removes every business stored under a version.
func (s *Store) DeleteVersionBusinesses(ctx context.Context, versionID string) error {
	businesses, err := s.ListVersionBusinesses(ctx, versionID)
	if err != nil {
		return err
	}
	ids := make([]string, len(businesses))
	for i, b := range businesses {
		ids[i] = b.ID
	}
	return s.docs.Delete(ctx, constants.VersionBusinessesCollection, ids...)
}
