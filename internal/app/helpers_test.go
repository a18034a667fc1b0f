package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/locations"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
)

// failingDocs commits at most limit query documents, then fails.
type failingDocs struct {
	docstore.Store
	limit int
}

func (f *failingDocs) BatchPut(ctx context.Context, collection string, docs []docstore.Doc, maxBatch int) (int, error) {
	if collection != constants.QueriesCollection || len(docs) <= f.limit {
		return f.Store.BatchPut(ctx, collection, docs, maxBatch)
	}
	written, err := f.Store.BatchPut(ctx, collection, docs[:f.limit], maxBatch)
	if err != nil {
		return written, err
	}
	return written, &domain.PersistenceError{Op: "batch put " + collection, Written: written, Err: errors.New("disk full")}
}

// rejectingDocs fails Put on one collection whenever reject matches the doc.
type rejectingDocs struct {
	docstore.Store
	collection string
	reject     func(doc any) bool
}

func (r *rejectingDocs) Put(ctx context.Context, collection, id string, doc any) error {
	if collection == r.collection && r.reject(doc) {
		return errors.New("disk full")
	}
	return r.Store.Put(ctx, collection, id, doc)
}

func setupDocs(t *testing.T) docstore.Store {
	t.Helper()
	docs, err := docstore.NewSQLite(filepath.Join(t.TempDir(), "test.db"), store.Indexes()...)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { docs.Close() })
	return docs
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(setupDocs(t), 500)
}

// testCatalog has one country with provinces P1..Pn, each with cities
// C1..Cm named "<province>-C<j>".
func testCatalog(t *testing.T, provinces, cities int) *locations.Catalog {
	t.Helper()
	country := locations.Country{Code: "CA", Name: "Canada"}
	for i := 1; i <= provinces; i++ {
		p := locations.Province{Code: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("Province %d", i)}
		for j := 1; j <= cities; j++ {
			p.Cities = append(p.Cities, fmt.Sprintf("%s-C%d", p.Code, j))
		}
		country.Provinces = append(country.Provinces, p)
	}
	c, err := locations.New([]locations.Country{country})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}
	return c
}

func allOf(country string) locations.Selection {
	return locations.Selection{
		Countries: locations.Subset(country),
		Provinces: locations.All(),
		Cities:    locations.All(),
	}
}

type services struct {
	repo       *store.Store
	queue      *queue.Queue
	baseTerms  *BaseTermService
	generate   *GenerateService
	queries    *QueryService
	queueSvc   *QueueService
	extraction *ExtractionService
}

func newServices(t *testing.T, repo *store.Store, catalog *locations.Catalog, ex Extractor) *services {
	t.Helper()
	log := logger.Discard()
	q := queue.New(time.Second)
	return &services{
		repo:       repo,
		queue:      q,
		baseTerms:  NewBaseTermService(repo, q, log),
		generate:   NewGenerateService(repo, catalog, log),
		queries:    NewQueryService(repo, q, log),
		queueSvc:   NewQueueService(repo, q, log),
		extraction: NewExtractionService(repo, ex, log),
	}
}

type stubExtractor struct {
	results map[string][]domain.Business
	errs    map[string]error
	calls   []string
}

func (s *stubExtractor) Extract(ctx context.Context, keyword string) ([]domain.Business, error) {
	s.calls = append(s.calls, keyword)
	if err := s.errs[keyword]; err != nil {
		return nil, err
	}
	return s.results[keyword], nil
}

func business(placeID string, pos int) domain.Business {
	rating := 4.0
	return domain.Business{
		PlaceID:        placeID,
		Name:           "Biz " + placeID,
		FullAddress:    "1 Main St",
		Phone:          "613-555-1234",
		Website:        "example.com",
		Rating:         &rating,
		Hours:          "Mon: 9-5",
		GooglePosition: pos,
		CustomPosition: pos,
	}
}
