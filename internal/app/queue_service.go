package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
)

// QueueStatus combines the in-memory queue with the stored query counts.
type QueueStatus struct {
	queue.Snapshot
	Stored domain.BaseTermStats `json:"stored"`
}

// QueueService keeps stored query statuses in step with the queue. Store
// writes happen before a job becomes runnable so the worker's own status
// updates are never overwritten. mu serializes every transition with its
// store write, so a Pause cannot slip between reading the paused flag and
// enqueueing.
type QueueService struct {
	Repo   *store.Store
	Queue  *queue.Queue
	Logger *logger.Logger

	mu sync.Mutex
}

func NewQueueService(repo *store.Store, q *queue.Queue, log *logger.Logger) *QueueService {
	return &QueueService{Repo: repo, Queue: q, Logger: log.WithComponent("queue")}
}

func enqueueable(s domain.QueryStatus) bool {
	switch s {
	case domain.QueryStatusPending, domain.QueryStatusError, domain.QueryStatusPaused, domain.QueryStatusComplete:
		return true
	}
	return false
}

// Enqueue adds existing queries to the queue in the given order. Unknown ids,
// queries already in the queue and queries in a state that cannot be queued
// are reported as skipped.
func (s *QueueService) Enqueue(ctx context.Context, ids []string) (*queue.EnqueueResult, error) {
	res := &queue.EnqueueResult{Added: []string{}, Skipped: []string{}}

	var valid []*domain.LocalQuery
	seen := make(map[string]bool, len(ids))
	active := 0
	for _, id := range ids {
		if seen[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		seen[id] = true

		if job, ok := s.Queue.Job(id); ok && isQueued(job.Status) {
			res.Skipped = append(res.Skipped, id)
			active++
			continue
		}
		q, err := s.Repo.GetQuery(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				res.Skipped = append(res.Skipped, id)
				continue
			}
			return nil, err
		}
		if !enqueueable(q.Status) {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		if len(ids) > 0 && active == 0 {
			return res, domain.NewValidationError("query_ids", "no queries can be queued")
		}
		return res, nil
	}

	added, err := s.add(ctx, valid)
	if err != nil {
		return nil, err
	}
	res.Added = append(res.Added, added.Added...)
	res.Skipped = append(res.Skipped, added.Skipped...)
	s.Logger.Info("Queries enqueued", "added", len(res.Added), "skipped", len(res.Skipped))
	return res, nil
}

// EnqueueAllPending queues every pending query, oldest first. An empty
// baseTermID covers all base terms.
func (s *QueueService) EnqueueAllPending(ctx context.Context, baseTermID string) (*queue.EnqueueResult, error) {
	pending, err := s.Repo.ListQueries(ctx, store.QueryFilter{BaseTermID: baseTermID, Status: domain.QueryStatusPending})
	if err != nil {
		return nil, err
	}
	oldestFirst(pending)

	var valid []*domain.LocalQuery
	for _, q := range pending {
		if job, ok := s.Queue.Job(q.ID); ok && isQueued(job.Status) {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return &queue.EnqueueResult{Added: []string{}, Skipped: []string{}}, nil
	}
	res, err := s.add(ctx, valid)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Pending queries enqueued", "base_term_id", baseTermID, "added", len(res.Added))
	return res, nil
}

func (s *QueueService) add(ctx context.Context, queries []*domain.LocalQuery) (*queue.EnqueueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(queries))
	for i, q := range queries {
		ids[i] = q.ID
	}
	status := domain.QueryStatusQueued
	if s.Queue.Status().Paused {
		status = domain.QueryStatusPaused
	}
	if _, err := s.Repo.SetQueryStatuses(ctx, ids, status); err != nil {
		return nil, err
	}
	res := s.Queue.Enqueue(ids)
	s.refreshAll(ctx, queries)
	return &res, nil
}

// Pause stops new jobs from starting. The running job finishes normally.
func (s *QueueService) Pause(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := s.Queue.Pause()
	if _, err := s.Repo.SetQueryStatuses(ctx, moved, domain.QueryStatusPaused); err != nil {
		return moved, err
	}
	s.refreshIDs(ctx, moved)
	s.Logger.Info("Queue paused", "jobs", len(moved))
	return moved, nil
}

// Resume restarts processing in the original order and clears a fatal halt.
func (s *QueueService) Resume(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := s.Queue.Waiting()
	if _, err := s.Repo.SetQueryStatuses(ctx, waiting, domain.QueryStatusQueued); err != nil {
		return nil, err
	}
	moved := s.Queue.Resume()
	s.refreshIDs(ctx, waiting)
	s.Logger.Info("Queue resumed", "jobs", len(waiting))
	return moved, nil
}

// RetryFailed re-queues failed queries with their errors cleared: those the
// queue saw fail first, in their original order, then any other stored
// failures oldest first. It refuses while the queue is halted, since the
// retried jobs would hit the same fatal error.
func (s *QueueService) RetryFailed(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Queue.Halted(); err != nil {
		return nil, err
	}
	inQueue := s.Queue.Failed()
	known := make(map[string]bool, len(inQueue))
	for _, id := range inQueue {
		known[id] = true
	}

	stored, err := s.Repo.ListQueries(ctx, store.QueryFilter{Status: domain.QueryStatusError})
	if err != nil {
		return nil, err
	}
	oldestFirst(stored)
	var extra []string
	for _, q := range stored {
		if known[q.ID] {
			continue
		}
		if job, ok := s.Queue.Job(q.ID); ok && isQueued(job.Status) {
			continue
		}
		extra = append(extra, q.ID)
	}

	ids := append(append([]string{}, inQueue...), extra...)
	if len(ids) == 0 {
		return []string{}, nil
	}
	status := domain.QueryStatusQueued
	if s.Queue.Status().Paused {
		status = domain.QueryStatusPaused
	}
	if _, err := s.Repo.SetQueryStatuses(ctx, ids, status); err != nil {
		return nil, err
	}

	retried := s.Queue.RetryFailed()
	retried = append(retried, s.Queue.Enqueue(extra).Added...)
	s.refreshIDs(ctx, ids)
	s.Logger.Info("Failed queries retried", "count", len(retried))
	return retried, nil
}

// Remove drops waiting queries from the queue and returns them to pending.
// Running and finished queries keep their stored status.
func (s *QueueService) Remove(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.Queue.Remove(ids)
	return removed, s.backToPending(ctx, removed)
}

// Clear empties the queue except for the running job.
func (s *QueueService) Clear(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := s.Queue.Clear()
	if err := s.backToPending(ctx, cleared); err != nil {
		return cleared, err
	}
	s.Logger.Info("Queue cleared", "jobs", len(cleared))
	return cleared, nil
}

// ResetStats zeroes the processed and failed counters and forgets observed
// job durations, so the ETA falls back to the default estimate.
func (s *QueueService) ResetStats(ctx context.Context) (*QueueStatus, error) {
	s.Queue.ResetStats()
	return s.Status(ctx)
}

func (s *QueueService) backToPending(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.Repo.SetQueryStatuses(ctx, ids, domain.QueryStatusPending); err != nil {
		return err
	}
	s.refreshIDs(ctx, ids)
	return nil
}

func (s *QueueService) Status(ctx context.Context) (*QueueStatus, error) {
	all, err := s.Repo.ListQueries(ctx, store.QueryFilter{})
	if err != nil {
		return nil, err
	}
	return &QueueStatus{Snapshot: s.Queue.Status(), Stored: domain.ComputeStats(all)}, nil
}

func (s *QueueService) refreshIDs(ctx context.Context, ids []string) {
	var queries []*domain.LocalQuery
	for _, id := range ids {
		if q, err := s.Repo.GetQuery(ctx, id); err == nil {
			queries = append(queries, q)
		}
	}
	s.refreshAll(ctx, queries)
}

// refreshAll recomputes stats once per base term touched by queries.
func (s *QueueService) refreshAll(ctx context.Context, queries []*domain.LocalQuery) {
	done := make(map[string]bool)
	for _, q := range queries {
		if q.BaseTermID == "" || done[q.BaseTermID] {
			continue
		}
		done[q.BaseTermID] = true
		if _, err := refreshStats(ctx, s.Repo, q.BaseTermID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.Logger.Warn("Failed to refresh stats", "base_term_id", q.BaseTermID, "error", err)
		}
	}
}

func isQueued(s domain.QueryStatus) bool {
	return s == domain.QueryStatusQueued || s == domain.QueryStatusRunning || s == domain.QueryStatusPaused
}

func oldestFirst(queries []*domain.LocalQuery) {
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].CreatedAt.Before(queries[j].CreatedAt)
	})
}
