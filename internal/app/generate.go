package app

import (
	"context"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/locations"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/store"
	"github.com/google/uuid"
)

// GenerateSummary reports the outcome of a bulk generation. Created counts
// only queries that were actually committed.
type GenerateSummary struct {
	Total   int                   `json:"total"`
	Created int                   `json:"created"`
	Skipped int                   `json:"skipped"`
	Failed  int                   `json:"failed"`
	Stats   *domain.BaseTermStats `json:"stats,omitempty"`
}

type GenerateService struct {
	Repo    *store.Store
	Catalog *locations.Catalog
	Logger  *logger.Logger
}

func NewGenerateService(repo *store.Store, catalog *locations.Catalog, log *logger.Logger) *GenerateService {
	return &GenerateService{Repo: repo, Catalog: catalog, Logger: log.WithComponent("generate")}
}

// Estimate returns how many location tuples sel expands to.
func (s *GenerateService) Estimate(sel locations.Selection) int {
	return s.Catalog.Estimate(sel)
}

// Generate creates one pending query per location in sel that does not
// already exist for the base term. Writes are batched; when a batch fails the
// summary still reports what was committed and the error is returned with it.
func (s *GenerateService) Generate(ctx context.Context, baseTermID string, sel locations.Selection) (*GenerateSummary, error) {
	bt, err := s.Repo.GetBaseTerm(ctx, baseTermID)
	if err != nil {
		return nil, err
	}
	log := s.Logger.WithBaseTerm(bt.ID, bt.Term)

	tuples := s.Catalog.Expand(sel)
	if len(tuples) == 0 {
		return nil, domain.NewValidationError("locations", "no valid locations")
	}

	existing, err := s.Repo.ExistingKeys(ctx, bt.Term)
	if err != nil {
		return nil, err
	}
	toCreate, skipped := FilterDuplicates(bt.Term, tuples, existing)

	summary := &GenerateSummary{Total: len(tuples), Skipped: skipped}
	if len(toCreate) == 0 {
		log.Info("Nothing to generate", "total", len(tuples), "skipped", skipped)
		return summary, nil
	}

	now := time.Now().UTC()
	queries := make([]*domain.LocalQuery, len(toCreate))
	for i, loc := range toCreate {
		// creation order follows catalog order
		created := now.Add(time.Duration(i) * time.Microsecond)
		queries[i] = &domain.LocalQuery{
			ID:         uuid.New().String(),
			BaseTermID: bt.ID,
			Term:       bt.Term,
			Keyword:    domain.Keyword(bt.Term, loc.City),
			City:       loc.City,
			Province:   loc.Province,
			Country:    loc.Country,
			Status:     domain.QueryStatusPending,
			CreatedAt:  created,
			UpdatedAt:  created,
		}
	}

	written, writeErr := s.Repo.CreateQueries(ctx, queries)
	summary.Created = written
	summary.Failed = len(queries) - written

	updated, statsErr := refreshStats(ctx, s.Repo, bt.ID)
	if statsErr != nil {
		log.Warn("Failed to refresh stats", "error", statsErr)
	} else {
		summary.Stats = &updated.Stats
	}

	if writeErr != nil {
		log.Error("Generation partially failed", "created", written, "failed", summary.Failed, "error", writeErr)
		return summary, writeErr
	}
	log.Info("Queries generated", "created", written, "skipped", skipped)
	return summary, nil
}

// FilterDuplicates splits tuples into those without a stored query for term
// and a count of the rest. Keys compare exactly, and repeats inside tuples
// are skipped as well.
func FilterDuplicates(term string, tuples []domain.LocationTuple, existing map[domain.QueryKey]bool) ([]domain.LocationTuple, int) {
	seen := make(map[domain.QueryKey]bool, len(tuples))
	toCreate := make([]domain.LocationTuple, 0, len(tuples))
	skipped := 0
	for _, loc := range tuples {
		key := domain.NewQueryKey(term, loc)
		if existing[key] || seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		toCreate = append(toCreate, loc)
	}
	return toCreate, skipped
}
