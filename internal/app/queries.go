package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/quality"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
	"github.com/google/uuid"
)

type CreateQueryInput struct {
	BaseTermID string
	Term       string
	City       string
	Province   string
	Country    string
}

type ListQueriesInput struct {
	Filter   store.QueryFilter
	Page     int
	PageSize int
}

type QueryPage struct {
	Items    []*domain.LocalQuery `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type QueryDetail struct {
	Query    *domain.LocalQuery     `json:"query"`
	Versions []*domain.QueryVersion `json:"versions"`
	Position int                    `json:"queue_position,omitempty"`
}

type PublishResult struct {
	Saved  int `json:"saved"`
	Errors int `json:"errors"`
}

type Metadata struct {
	BusinessTypes []string `json:"business_types"`
	Cities        []string `json:"cities"`
}

type QueryService struct {
	Repo   *store.Store
	Queue  *queue.Queue
	Logger *logger.Logger
}

func NewQueryService(repo *store.Store, q *queue.Queue, log *logger.Logger) *QueryService {
	return &QueryService{Repo: repo, Queue: q, Logger: log.WithComponent("queries")}
}

// CreateSingle adds one query after checking it against existing keys.
func (s *QueryService) CreateSingle(ctx context.Context, in CreateQueryInput) (*domain.LocalQuery, error) {
	in.Term = strings.TrimSpace(in.Term)
	in.City = strings.TrimSpace(in.City)

	if in.BaseTermID != "" {
		bt, err := s.Repo.GetBaseTerm(ctx, in.BaseTermID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("base_term_id", "base term does not exist")
			}
			return nil, err
		}
		if in.Term == "" {
			in.Term = bt.Term
		}
	}
	if in.Term == "" {
		return nil, domain.NewValidationError("term", "term is required")
	}
	if in.City == "" {
		return nil, domain.NewValidationError("city", "city is required")
	}

	loc := domain.LocationTuple{City: in.City, Province: strings.TrimSpace(in.Province), Country: strings.TrimSpace(in.Country)}
	existing, err := s.Repo.ExistingKeys(ctx, in.Term)
	if err != nil {
		return nil, err
	}
	if toCreate, _ := FilterDuplicates(in.Term, []domain.LocationTuple{loc}, existing); len(toCreate) == 0 {
		return nil, domain.ErrDuplicateQuery
	}

	now := time.Now().UTC()
	q := &domain.LocalQuery{
		ID:         uuid.New().String(),
		BaseTermID: in.BaseTermID,
		Term:       in.Term,
		Keyword:    domain.Keyword(in.Term, loc.City),
		City:       loc.City,
		Province:   loc.Province,
		Country:    loc.Country,
		Status:     domain.QueryStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateQuery(ctx, q); err != nil {
		return nil, err
	}
	if q.BaseTermID != "" {
		if _, err := refreshStats(ctx, s.Repo, q.BaseTermID); err != nil {
			s.Logger.Warn("Failed to refresh stats", "base_term_id", q.BaseTermID, "error", err)
		}
	}
	s.Logger.WithJob(q.ID, q.Keyword).Info("Query created")
	return q, nil
}

func (s *QueryService) List(ctx context.Context, in ListQueriesInput) (*QueryPage, error) {
	if in.Filter.Status != "" && !in.Filter.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", in.Filter.Status))
	}
	all, err := s.Repo.ListQueries(ctx, in.Filter)
	if err != nil {
		return nil, err
	}

	page, size := in.Page, in.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = constants.DefaultPageSize
	}
	if size > constants.MaxPageSize {
		size = constants.MaxPageSize
	}

	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	return &QueryPage{Items: all[start:end], Total: len(all), Page: page, PageSize: size}, nil
}

func (s *QueryService) Get(ctx context.Context, id string) (*QueryDetail, error) {
	q, err := s.Repo.GetQuery(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.Repo.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &QueryDetail{Query: q, Versions: versions}
	if s.Queue != nil {
		if pos, ok := s.Queue.Position(id); ok {
			detail.Position = pos
		}
	}
	return detail, nil
}

// Delete removes a query with its versions and their businesses.
func (s *QueryService) Delete(ctx context.Context, id string) error {
	q, err := s.Repo.GetQuery(ctx, id)
	if err != nil {
		return err
	}
	if err := dequeue(s.Queue, []string{id}); err != nil {
		return err
	}
	if err := deleteQueryCascade(ctx, s.Repo, id); err != nil {
		return err
	}
	if q.BaseTermID != "" {
		if _, err := refreshStats(ctx, s.Repo, q.BaseTermID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.Logger.Warn("Failed to refresh stats", "base_term_id", q.BaseTermID, "error", err)
		}
	}
	s.Logger.WithJob(q.ID, q.Keyword).Info("Query deleted")
	return nil
}

func (s *QueryService) Versions(ctx context.Context, queryID string) ([]*domain.QueryVersion, error) {
	if _, err := s.Repo.GetQuery(ctx, queryID); err != nil {
		return nil, err
	}
	return s.Repo.ListVersions(ctx, queryID)
}

// version loads a version and checks that it belongs to queryID.
func (s *QueryService) version(ctx context.Context, queryID, versionID string) (*domain.QueryVersion, error) {
	v, err := s.Repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.QueryID != queryID {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

// VersionBusinesses returns the businesses of a version ordered by sortBy,
// either google_position (default) or custom_position.
func (s *QueryService) VersionBusinesses(ctx context.Context, queryID, versionID, sortBy string) ([]domain.VersionBusiness, error) {
	if sortBy == "" {
		sortBy = constants.SortByGoogle
	}
	if sortBy != constants.SortByGoogle && sortBy != constants.SortByCustom {
		return nil, domain.NewValidationError("sort_by", fmt.Sprintf("must be %s or %s", constants.SortByGoogle, constants.SortByCustom))
	}
	if _, err := s.version(ctx, queryID, versionID); err != nil {
		return nil, err
	}
	businesses, err := s.Repo.ListVersionBusinesses(ctx, versionID)
	if err != nil {
		return nil, err
	}

	key := func(b *domain.VersionBusiness) int { return b.GooglePosition }
	if sortBy == constants.SortByCustom {
		key = func(b *domain.VersionBusiness) int { return b.CustomPosition }
	}
	sort.SliceStable(businesses, func(i, j int) bool {
		ki, kj := key(&businesses[i]), key(&businesses[j])
		if ki != kj {
			return ki < kj
		}
		return businesses[i].GooglePosition < businesses[j].GooglePosition
	})
	return businesses, nil
}

// SetLatest marks versionID as the latest version of its query. The current
// latest is read first, the new one written, then the old one cleared.
func (s *QueryService) SetLatest(ctx context.Context, queryID, versionID string) (*domain.QueryVersion, error) {
	v, err := s.version(ctx, queryID, versionID)
	if err != nil {
		return nil, err
	}
	q, err := s.Repo.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if err := setLatest(ctx, s.Repo, v); err != nil {
		return nil, err
	}
	q.LatestVersionID = v.ID
	q.ResultCount = &v.BusinessCount
	if err := s.Repo.UpdateQuery(ctx, q); err != nil {
		return nil, err
	}
	return v, nil
}

func setLatest(ctx context.Context, repo *store.Store, v *domain.QueryVersion) error {
	current, err := repo.LatestVersions(ctx, v.QueryID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	v.IsLatest = true
	v.UpdatedAt = &now
	if err := repo.PutVersion(ctx, v); err != nil {
		return err
	}

	for _, old := range current {
		if old.ID == v.ID {
			continue
		}
		old.IsLatest = false
		old.UpdatedAt = &now
		if err := repo.PutVersion(ctx, old); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePosition sets the custom position of one business in a version. The
// published copy, if any, follows.
func (s *QueryService) UpdatePosition(ctx context.Context, queryID, versionID, placeID string, position int) (*domain.VersionBusiness, error) {
	if position < 1 {
		return nil, domain.NewValidationError("position", "must be at least 1")
	}
	v, err := s.version(ctx, queryID, versionID)
	if err != nil {
		return nil, err
	}
	b, err := s.Repo.GetVersionBusiness(ctx, versionID, placeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b.CustomPosition = position
	b.UpdatedAt = &now
	if err := s.Repo.PutVersionBusiness(ctx, b); err != nil {
		return nil, err
	}

	if v.Published {
		if _, err := s.Repo.UpdateBusinessPosition(ctx, placeID, position); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return b, nil
}

// PublishVersion merges the businesses of a version into the main business
// collection by place id and marks the version published.
func (s *QueryService) PublishVersion(ctx context.Context, queryID, versionID string) (*PublishResult, error) {
	v, err := s.version(ctx, queryID, versionID)
	if err != nil {
		return nil, err
	}
	vbs, err := s.Repo.ListVersionBusinesses(ctx, versionID)
	if err != nil {
		return nil, err
	}
	businesses := make([]domain.Business, len(vbs))
	for i := range vbs {
		businesses[i] = vbs[i].Business
		businesses[i].CreatedAt = nil
		businesses[i].UpdatedAt = nil
	}

	saved, failed, mergeErr := s.Repo.MergeBusinesses(ctx, businesses)
	result := &PublishResult{Saved: saved, Errors: failed}
	if mergeErr != nil {
		s.Logger.Error("Publish partially failed", "version_id", versionID, "saved", saved, "error", mergeErr)
		return result, mergeErr
	}

	now := time.Now().UTC()
	v.Published = true
	v.PublishedAt = &now
	v.UpdatedAt = &now
	if err := s.Repo.PutVersion(ctx, v); err != nil {
		return result, err
	}
	s.Logger.Info("Version published", "query_id", queryID, "version_id", versionID, "saved", saved, "errors", failed)
	return result, nil
}

func (s *QueryService) QualityReport(ctx context.Context, queryID, versionID string) (*quality.Report, error) {
	businesses, err := s.VersionBusinesses(ctx, queryID, versionID, constants.SortByGoogle)
	if err != nil {
		return nil, err
	}
	report := quality.Score(Businesses(businesses))
	return &report, nil
}

func (s *QueryService) Metadata(ctx context.Context) (*Metadata, error) {
	types, err := s.Repo.DistinctTerms(ctx)
	if err != nil {
		return nil, err
	}
	cities, err := s.Repo.DistinctCities(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []string{}
	}
	if cities == nil {
		cities = []string{}
	}
	return &Metadata{BusinessTypes: types, Cities: cities}, nil
}

// Businesses strips the version envelope from vbs.
func Businesses(vbs []domain.VersionBusiness) []domain.Business {
	out := make([]domain.Business, len(vbs))
	for i := range vbs {
		out[i] = vbs[i].Business
	}
	return out
}
