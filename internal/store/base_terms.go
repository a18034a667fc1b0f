package store

import (
	"context"
	"sort"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
)

func (s *Store) CreateBaseTerm(ctx context.Context, bt *domain.BaseTerm) error {
	return s.docs.Put(ctx, constants.BaseTermsCollection, bt.ID, bt)
}

func (s *Store) GetBaseTerm(ctx context.Context, id string) (*domain.BaseTerm, error) {
	bt := &domain.BaseTerm{}
	if err := s.docs.Get(ctx, constants.BaseTermsCollection, id, bt); err != nil {
		return nil, err
	}
	return bt, nil
}

// FindBaseTerm returns the base term with exactly this text, or nil.
func (s *Store) FindBaseTerm(ctx context.Context, term string) (*domain.BaseTerm, error) {
	terms, err := docstore.QueryAs[*domain.BaseTerm](ctx, s.docs, constants.BaseTermsCollection, docstore.Filter{"term": term})
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, nil
	}
	return terms[0], nil
}

// ListBaseTerms returns every base term, newest first.
func (s *Store) ListBaseTerms(ctx context.Context) ([]*domain.BaseTerm, error) {
	terms, err := docstore.QueryAs[*domain.BaseTerm](ctx, s.docs, constants.BaseTermsCollection, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].CreatedAt.After(terms[j].CreatedAt)
	})
	return terms, nil
}

func (s *Store) UpdateBaseTermStats(ctx context.Context, id string, stats domain.BaseTermStats) (*domain.BaseTerm, error) {
	bt, err := s.GetBaseTerm(ctx, id)
	if err != nil {
		return nil, err
	}
	bt.Stats = stats
	bt.UpdatedAt = time.Now().UTC()
	if err := s.docs.Put(ctx, constants.BaseTermsCollection, bt.ID, bt); err != nil {
		return nil, err
	}
	return bt, nil
}

func (s *Store) DeleteBaseTerm(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, constants.BaseTermsCollection, id)
}
