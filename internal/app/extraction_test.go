package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/places"
	"github.com/cesargomez89/quarry/internal/store"
)

func TestProcessCreatesVersion(t *testing.T) {
	repo := setupTestStore(t)
	ex := &stubExtractor{}
	svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
	ctx := context.Background()

	bt, _ := svc.baseTerms.Create(ctx, "cafe", "")
	q, _ := svc.queries.CreateSingle(ctx, CreateQueryInput{BaseTermID: bt.ID, City: "Ottawa", Province: "ON", Country: "CA"})
	ex.results = map[string][]domain.Business{q.Keyword: {business("p1", 1), business("p2", 2)}}

	if err := svc.extraction.Process(ctx, q.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got, _ := repo.GetQuery(ctx, q.ID)
	if got.Status != domain.QueryStatusComplete {
		t.Errorf("status = %s, want complete", got.Status)
	}
	if got.ResultCount == nil || *got.ResultCount != 2 {
		t.Errorf("result count = %v, want 2", got.ResultCount)
	}
	if got.StartedAt == nil || got.CompletedAt == nil || got.LatestVersionID == "" || got.VersionsCount != 1 {
		t.Errorf("unexpected query %+v", got)
	}

	vbs, _ := repo.ListVersionBusinesses(ctx, got.LatestVersionID)
	if len(vbs) != 2 {
		t.Fatalf("Expected 2 version businesses, got %d", len(vbs))
	}
	if vbs[0].QueryID != q.ID || vbs[0].Phone != "+16135551234" {
		t.Errorf("unexpected version business %+v", vbs[0])
	}

	term, _ := repo.GetBaseTerm(ctx, bt.ID)
	if term.Stats.Complete != 1 || term.Stats.Total != 1 {
		t.Errorf("unexpected stats %+v", term.Stats)
	}
}

func TestProcessTransientFailure(t *testing.T) {
	repo := setupTestStore(t)
	ex := &stubExtractor{}
	svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
	ctx := context.Background()

	q, _ := svc.queries.CreateSingle(ctx, CreateQueryInput{Term: "bar", City: "Ottawa"})
	ex.errs = map[string]error{q.Keyword: domain.Transient("search", 500, errors.New("backend error"))}

	err := svc.extraction.Process(ctx, q.ID)
	if !errors.Is(err, domain.ErrTransientExtraction) {
		t.Fatalf("Expected transient error returned unchanged, got %v", err)
	}

	got, _ := repo.GetQuery(ctx, q.ID)
	if got.Status != domain.QueryStatusError || got.Error == nil || *got.Error == "" {
		t.Errorf("Expected error status with message, got %+v", got)
	}
	if versions, _ := repo.ListVersions(ctx, q.ID); len(versions) != 0 {
		t.Errorf("Expected no versions, got %d", len(versions))
	}
}

func TestProcessFatalFailureRequeues(t *testing.T) {
	repo := setupTestStore(t)
	ex := &stubExtractor{}
	svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
	ctx := context.Background()

	q, _ := svc.queries.CreateSingle(ctx, CreateQueryInput{Term: "bar", City: "Ottawa"})
	ex.errs = map[string]error{q.Keyword: domain.Fatal("search", 403, errors.New("PERMISSION_DENIED"))}

	if err := svc.extraction.Process(ctx, q.ID); !domain.IsFatal(err) {
		t.Fatalf("Expected fatal error, got %v", err)
	}
	got, _ := repo.GetQuery(ctx, q.ID)
	if got.Status != domain.QueryStatusQueued {
		t.Errorf("status = %s, want queued", got.Status)
	}
}

func TestProcessUnknownQuery(t *testing.T) {
	repo := setupTestStore(t)
	svc := newServices(t, repo, testCatalog(t, 1, 1), &stubExtractor{})

	if err := svc.extraction.Process(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProcessWithMockProvider(t *testing.T) {
	repo := setupTestStore(t)
	mock := places.NewMockProvider()
	mock.Results = 4
	ex := places.NewExtractor(mock, 20, logger.Discard())
	svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
	ctx := context.Background()

	q, _ := svc.queries.CreateSingle(ctx, CreateQueryInput{Term: "gym", City: "Regina"})
	if err := svc.extraction.Process(ctx, q.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	detail, _ := svc.queries.Get(ctx, q.ID)
	if len(detail.Versions) != 1 || detail.Versions[0].BusinessCount != 4 {
		t.Errorf("unexpected versions %+v", detail.Versions)
	}
}

func TestProcessRecordsFailedStatusWrites(t *testing.T) {
	tests := []struct {
		name   string
		status domain.QueryStatus
	}{
		{"marking running", domain.QueryStatusRunning},
		{"marking complete", domain.QueryStatusComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &rejectingDocs{
				Store:      setupDocs(t),
				collection: constants.QueriesCollection,
				reject: func(doc any) bool {
					q, ok := doc.(*domain.LocalQuery)
					return ok && q.Status == tt.status
				},
			}
			repo := store.New(docs, 500)
			ex := &stubExtractor{}
			svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
			ctx := context.Background()

			q, err := svc.queries.CreateSingle(ctx, CreateQueryInput{Term: "cafe", City: "Ottawa"})
			if err != nil {
				t.Fatal(err)
			}
			ex.results = map[string][]domain.Business{q.Keyword: {business("p1", 1)}}

			if err := svc.extraction.Process(ctx, q.ID); err == nil {
				t.Fatal("Expected error from Process")
			}
			got, _ := repo.GetQuery(ctx, q.ID)
			if got.Status != domain.QueryStatusError || got.Error == nil {
				t.Errorf("Expected error status with message, got %s (%v)", got.Status, got.Error)
			}
		})
	}
}

func TestProcessDiscardsVersionWhenLatestFails(t *testing.T) {
	raw := setupDocs(t)
	docs := &rejectingDocs{
		Store:      raw,
		collection: constants.VersionsCollection,
		reject:     func(any) bool { return true },
	}
	repo := store.New(docs, 500)
	ex := &stubExtractor{}
	svc := newServices(t, repo, testCatalog(t, 1, 1), ex)
	ctx := context.Background()

	q, _ := svc.queries.CreateSingle(ctx, CreateQueryInput{Term: "bar", City: "Ottawa"})
	ex.results = map[string][]domain.Business{q.Keyword: {business("p1", 1), business("p2", 2)}}

	if err := svc.extraction.Process(ctx, q.ID); err == nil {
		t.Fatal("Expected error from Process")
	}

	got, _ := repo.GetQuery(ctx, q.ID)
	if got.Status != domain.QueryStatusError || got.LatestVersionID != "" {
		t.Errorf("unexpected query %+v", got)
	}
	if versions, _ := repo.ListVersions(ctx, q.ID); len(versions) != 0 {
		t.Errorf("Expected no versions, got %d", len(versions))
	}
	orphans, err := docstore.QueryAs[domain.VersionBusiness](ctx, raw, constants.VersionBusinessesCollection, docstore.Filter{"query_id": q.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("Expected no orphan version businesses, got %d", len(orphans))
	}
}
