package app

import (
	"context"
	"errors"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/quality"
	"github.com/cesargomez89/quarry/internal/store"
	"github.com/google/uuid"
)

// Extractor fetches the businesses for one search keyword.
type Extractor interface {
	Extract(ctx context.Context, keyword string) ([]domain.Business, error)
}

// ExtractionService runs one queued query end to end. It is the processor
// behind the queue worker.
type ExtractionService struct {
	Repo      *store.Store
	Extractor Extractor
	Logger    *logger.Logger
}

func NewExtractionService(repo *store.Store, extractor Extractor, log *logger.Logger) *ExtractionService {
	return &ExtractionService{Repo: repo, Extractor: extractor, Logger: log.WithComponent("extraction")}
}

// Process extracts businesses for a query and stores them as a new version.
// The error is returned unchanged so the worker can tell fatal from
// transient failures.
func (s *ExtractionService) Process(ctx context.Context, queryID string) error {
	q, err := s.Repo.GetQuery(ctx, queryID)
	if err != nil {
		return err
	}
	log := s.Logger.WithJob(q.ID, q.Keyword)

	now := time.Now().UTC()
	q.Status = domain.QueryStatusRunning
	q.StartedAt = &now
	q.LastRunAt = &now
	q.CompletedAt = nil
	q.Error = nil
	if err := s.Repo.UpdateQuery(ctx, q); err != nil {
		s.fail(ctx, q, err, log)
		return err
	}
	s.refresh(ctx, q, log)
	log.Info("Extraction started")

	businesses, err := s.Extractor.Extract(ctx, q.Keyword)
	if err != nil {
		s.fail(ctx, q, err, log)
		return err
	}

	for i := range businesses {
		quality.Normalize(&businesses[i])
	}

	version, err := s.saveVersion(ctx, q, businesses)
	if err != nil {
		s.fail(ctx, q, err, log)
		return err
	}

	done := time.Now().UTC()
	count := len(businesses)
	q.Status = domain.QueryStatusComplete
	q.CompletedAt = &done
	q.ResultCount = &count
	q.VersionsCount = version.VersionNumber
	q.LatestVersionID = version.ID
	if err := s.Repo.UpdateQuery(ctx, q); err != nil {
		s.fail(ctx, q, err, log)
		return err
	}
	s.refresh(ctx, q, log)

	log.Info("Extraction complete", "results", count, "version", version.VersionNumber, "duration", done.Sub(now))
	return nil
}

func (s *ExtractionService) saveVersion(ctx context.Context, q *domain.LocalQuery, businesses []domain.Business) (*domain.QueryVersion, error) {
	versions, err := s.Repo.ListVersions(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	number := 1
	if len(versions) > 0 {
		number = versions[0].VersionNumber + 1
	}

	v := &domain.QueryVersion{
		ID:            uuid.New().String(),
		QueryID:       q.ID,
		VersionNumber: number,
		BusinessCount: len(businesses),
		CreatedAt:     time.Now().UTC(),
	}

	vbs := make([]domain.VersionBusiness, len(businesses))
	for i, b := range businesses {
		vbs[i] = domain.VersionBusiness{QueryID: q.ID, VersionID: v.ID, Business: b}
	}
	if _, err := s.Repo.PutVersionBusinesses(ctx, vbs); err != nil {
		s.discardVersion(ctx, v.ID)
		return nil, err
	}

	if err := setLatest(ctx, s.Repo, v); err != nil {
		s.discardVersion(ctx, v.ID)
		return nil, err
	}
	return v, nil
}

// discardVersion removes a version that could not be fully written, along
// with any businesses already stored under it.
func (s *ExtractionService) discardVersion(ctx context.Context, versionID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Repo.DeleteVersionBusinesses(ctx, versionID); err != nil {
		s.Logger.Warn("Failed to discard version businesses", "version_id", versionID, "error", err)
	}
	if err := s.Repo.DeleteVersions(ctx, versionID); err != nil {
		s.Logger.Warn("Failed to discard version", "version_id", versionID, "error", err)
	}
}

// fail records err on the query. A fatal error sends the query back to
// queued since the worker keeps it at the head of the line; a cancelled run
// goes back to pending.
func (s *ExtractionService) fail(ctx context.Context, q *domain.LocalQuery, err error, log *logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	msg := err.Error()

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		q.Status = domain.QueryStatusPending
		q.Error = nil
		q.StartedAt = nil
		log.Warn("Extraction interrupted", "error", err)
	case domain.IsFatal(err):
		q.Status = domain.QueryStatusQueued
		q.Error = &msg
		q.StartedAt = nil
		log.Error("Extraction halted the queue", "error", err)
	default:
		q.Status = domain.QueryStatusError
		q.Error = &msg
		log.Error("Extraction failed", "error", err)
	}

	if uerr := s.Repo.UpdateQuery(ctx, q); uerr != nil {
		log.Error("Failed to record extraction error", "error", uerr)
	}
	s.refresh(ctx, q, log)
}

func (s *ExtractionService) refresh(ctx context.Context, q *domain.LocalQuery, log *logger.Logger) {
	if q.BaseTermID == "" {
		return
	}
	if _, err := refreshStats(ctx, s.Repo, q.BaseTermID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn("Failed to refresh stats", "error", err)
	}
}
