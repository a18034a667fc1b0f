package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
	"github.com/google/uuid"
)

type BaseTermService struct {
	Repo   *store.Store
	Queue  *queue.Queue
	Logger *logger.Logger
}

func NewBaseTermService(repo *store.Store, q *queue.Queue, log *logger.Logger) *BaseTermService {
	return &BaseTermService{Repo: repo, Queue: q, Logger: log.WithComponent("base_terms")}
}

func (s *BaseTermService) Create(ctx context.Context, term, category string) (*domain.BaseTerm, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.NewValidationError("term", "term is required")
	}

	existing, err := s.Repo.FindBaseTerm(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing base term: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateBaseTerm
	}

	now := time.Now().UTC()
	bt := &domain.BaseTerm{
		ID:        uuid.New().String(),
		Term:      term,
		Category:  strings.TrimSpace(category),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.CreateBaseTerm(ctx, bt); err != nil {
		return nil, err
	}
	s.Logger.Info("Base term created", "base_term_id", bt.ID, "term", bt.Term)
	return bt, nil
}

func (s *BaseTermService) List(ctx context.Context) ([]*domain.BaseTerm, error) {
	return s.Repo.ListBaseTerms(ctx)
}

func (s *BaseTermService) Get(ctx context.Context, id string) (*domain.BaseTerm, error) {
	return s.Repo.GetBaseTerm(ctx, id)
}

// Delete removes a base term with all of its queries, their versions and the
// businesses stored under them. It refuses while one of its queries runs.
func (s *BaseTermService) Delete(ctx context.Context, id string) error {
	bt, err := s.Repo.GetBaseTerm(ctx, id)
	if err != nil {
		return err
	}

	queries, err := s.Repo.ListQueries(ctx, store.QueryFilter{BaseTermID: id})
	if err != nil {
		return err
	}
	ids := make([]string, len(queries))
	for i, q := range queries {
		ids[i] = q.ID
	}
	if err := dequeue(s.Queue, ids); err != nil {
		return err
	}
	for _, q := range queries {
		if err := deleteQueryCascade(ctx, s.Repo, q.ID); err != nil {
			return fmt.Errorf("failed to delete query %s: %w", q.ID, err)
		}
	}
	if err := s.Repo.DeleteBaseTerm(ctx, id); err != nil {
		return err
	}
	s.Logger.WithBaseTerm(bt.ID, bt.Term).Info("Base term deleted", "queries", len(queries))
	return nil
}

// RefreshStats recomputes the stats of a base term from its queries.
func (s *BaseTermService) RefreshStats(ctx context.Context, id string) (*domain.BaseTerm, error) {
	return refreshStats(ctx, s.Repo, id)
}

func refreshStats(ctx context.Context, repo *store.Store, baseTermID string) (*domain.BaseTerm, error) {
	queries, err := repo.ListQueries(ctx, store.QueryFilter{BaseTermID: baseTermID})
	if err != nil {
		return nil, err
	}
	return repo.UpdateBaseTermStats(ctx, baseTermID, domain.ComputeStats(queries))
}

// dequeue drops ids from the queue. It fails if any of them is running.
func dequeue(q *queue.Queue, ids []string) error {
	if q == nil || len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if job, ok := q.Job(id); ok && job.Status == domain.QueryStatusRunning {
			return fmt.Errorf("%w: %s", domain.ErrQueryBusy, id)
		}
	}
	q.Forget(ids)
	return nil
}

func deleteQueryCascade(ctx context.Context, repo *store.Store, queryID string) error {
	versions, err := repo.ListVersions(ctx, queryID)
	if err != nil {
		return err
	}
	versionIDs := make([]string, len(versions))
	for i, v := range versions {
		if err := repo.DeleteVersionBusinesses(ctx, v.ID); err != nil {
			return err
		}
		versionIDs[i] = v.ID
	}
	if err := repo.DeleteVersions(ctx, versionIDs...); err != nil {
		return err
	}
	return repo.DeleteQueries(ctx, queryID)
}
