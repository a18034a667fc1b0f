package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
)

// QueryFilter narrows ListQueries. Empty fields match everything.
type QueryFilter struct {
	BaseTermID string
	Term       string
	Status     domain.QueryStatus
	Keyword    string
	City       string
}

func (f QueryFilter) docFilter() docstore.Filter {
	df := docstore.Filter{}
	if f.BaseTermID != "" {
		df["base_term_id"] = f.BaseTermID
	}
	if f.Term != "" {
		df["term"] = f.Term
	}
	if f.Status != "" {
		df["status"] = string(f.Status)
	}
	if f.Keyword != "" {
		df["keyword"] = f.Keyword
	}
	if f.City != "" {
		df["city"] = f.City
	}
	return df
}

func (s *Store) CreateQuery(ctx context.Context, q *domain.LocalQuery) error {
	return s.docs.Put(ctx, constants.QueriesCollection, q.ID, q)
}

// CreateQueries writes queries in batches and returns how many were committed.
func (s *Store) CreateQueries(ctx context.Context, queries []*domain.LocalQuery) (int, error) {
	docs := make([]docstore.Doc, len(queries))
	for i, q := range queries {
		docs[i] = docstore.Doc{ID: q.ID, Data: q}
	}
	return s.docs.BatchPut(ctx, constants.QueriesCollection, docs, s.batchSize)
}

func (s *Store) GetQuery(ctx context.Context, id string) (*domain.LocalQuery, error) {
	q := &domain.LocalQuery{}
	if err := s.docs.Get(ctx, constants.QueriesCollection, id, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListQueries returns matching queries, newest first.
func (s *Store) ListQueries(ctx context.Context, f QueryFilter) ([]*domain.LocalQuery, error) {
	queries, err := docstore.QueryAs[*domain.LocalQuery](ctx, s.docs, constants.QueriesCollection, f.docFilter())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].CreatedAt.After(queries[j].CreatedAt)
	})
	return queries, nil
}

// ExistingKeys returns the tuple keys already stored for a term.
func (s *Store) ExistingKeys(ctx context.Context, term string) (map[domain.QueryKey]bool, error) {
	queries, err := s.ListQueries(ctx, QueryFilter{Term: term})
	if err != nil {
		return nil, err
	}
	keys := make(map[domain.QueryKey]bool, len(queries))
	for _, q := range queries {
		keys[q.Key()] = true
	}
	return keys, nil
}

func (s *Store) UpdateQuery(ctx context.Context, q *domain.LocalQuery) error {
	q.UpdatedAt = time.Now().UTC()
	return s.docs.Put(ctx, constants.QueriesCollection, q.ID, q)
}

// SetQueryStatuses moves the given queries to status, clearing any error when
// the new status is not an error. Unknown ids are skipped.
func (s *Store) SetQueryStatuses(ctx context.Context, ids []string, status domain.QueryStatus) (int, error) {
	now := time.Now().UTC()
	docs := make([]docstore.Doc, 0, len(ids))
	for _, id := range ids {
		q, err := s.GetQuery(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return 0, err
		}
		q.Status = status
		q.UpdatedAt = now
		if status != domain.QueryStatusError {
			q.Error = nil
		}
		docs = append(docs, docstore.Doc{ID: q.ID, Data: q})
	}
	return s.docs.BatchPut(ctx, constants.QueriesCollection, docs, s.batchSize)
}

// ResetInFlight returns queries stuck in queued, running or paused to pending.
// Used at startup because queue state does not survive a restart.
func (s *Store) ResetInFlight(ctx context.Context) (int, error) {
	var ids []string
	for _, st := range []domain.QueryStatus{domain.QueryStatusQueued, domain.QueryStatusRunning, domain.QueryStatusPaused} {
		queries, err := s.ListQueries(ctx, QueryFilter{Status: st})
		if err != nil {
			return 0, err
		}
		for _, q := range queries {
			ids = append(ids, q.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.SetQueryStatuses(ctx, ids, domain.QueryStatusPending)
}

func (s *Store) DeleteQueries(ctx context.Context, ids ...string) error {
	return s.docs.Delete(ctx, constants.QueriesCollection, ids...)
}

// DistinctTerms returns the sorted set of terms used by stored queries.
func (s *Store) DistinctTerms(ctx context.Context) ([]string, error) {
	return s.distinctQueryField(ctx, func(q *domain.LocalQuery) string { return q.Term })
}

// DistinctCities returns the sorted set of cities used by stored queries.
func (s *Store) DistinctCities(ctx context.Context) ([]string, error) {
	return s.distinctQueryField(ctx, func(q *domain.LocalQuery) string { return q.City })
}

func (s *Store) distinctQueryField(ctx context.Context, field func(*domain.LocalQuery) string) ([]string, error) {
	queries, err := s.ListQueries(ctx, QueryFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, q := range queries {
		v := field(q)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
