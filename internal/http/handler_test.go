package httpapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/docstore"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/http/dto"
	"github.com/cesargomez89/quarry/internal/locations"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/places"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
)

type testServer struct {
	handler    *Handler
	router     http.Handler
	repo       *store.Store
	queue      *queue.Queue
	extraction *app.ExtractionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	docs, err := docstore.NewSQLite(filepath.Join(t.TempDir(), "test.db"), store.Indexes()...)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	catalog, err := locations.New([]locations.Country{{
		Code: "CA",
		Name: "Canada",
		Provinces: []locations.Province{
			{Code: "ON", Name: "Ontario", Cities: []string{"Ottawa", "Toronto"}},
			{Code: "QC", Name: "Quebec", Cities: []string{"Montreal"}},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	log := logger.Discard()
	repo := store.New(docs, 500)
	q := queue.New(time.Second)
	extractor := places.NewExtractor(places.NewMockProvider(), 20, log)

	h := NewHandler(
		app.NewBaseTermService(repo, q, log),
		app.NewGenerateService(repo, catalog, log),
		app.NewQueryService(repo, q, log),
		app.NewQueueService(repo, q, log),
		catalog,
		log,
	)
	return &testServer{
		handler:    h,
		router:     h.Router(),
		repo:       repo,
		queue:      q,
		extraction: app.NewExtractionService(repo, extractor, log),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func allCanada() dto.SelectionRequest {
	return dto.SelectionRequest{Countries: []string{"CA"}, Provinces: []string{"ALL"}, Cities: []string{"ALL"}}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t)
	s.handler.Username, s.handler.Password = "quarry", "secret"
	router := s.handler.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/base-terms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/base-terms", nil)
	req.SetBasicAuth("quarry", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected /health to stay open, got %d", rec.Code)
	}
}

func TestBaseTermLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/base-terms", dto.CreateBaseTermRequest{Term: "plumber"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	bt := decodeBody[domain.BaseTerm](t, rec)

	rec = s.do(t, http.MethodPost, "/api/base-terms", dto.CreateBaseTermRequest{Term: "plumber"})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/base-terms", dto.CreateBaseTermRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty term, got %d", rec.Code)
	}
	if resp := decodeBody[dto.ErrorResponse](t, rec); resp.Fields["term"] == "" {
		t.Errorf("Expected field error for term, got %+v", resp)
	}

	rec = s.do(t, http.MethodPost, "/api/base-terms/"+bt.ID+"/estimate", allCanada())
	if est := decodeBody[dto.EstimateResponse](t, rec); est.Count != 3 {
		t.Errorf("Expected estimate 3, got %+v", est)
	}

	rec = s.do(t, http.MethodPost, "/api/base-terms/"+bt.ID+"/generate", allCanada())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[app.GenerateSummary](t, rec)
	if sum.Created != 3 || sum.Skipped != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}

	rec = s.do(t, http.MethodPost, "/api/base-terms/"+bt.ID+"/generate", allCanada())
	if sum := decodeBody[app.GenerateSummary](t, rec); sum.Created != 0 || sum.Skipped != 3 {
		t.Errorf("Expected idempotent generation, got %+v", sum)
	}

	rec = s.do(t, http.MethodGet, "/api/base-terms/"+bt.ID, nil)
	if got := decodeBody[domain.BaseTerm](t, rec); got.Stats.Total != 3 {
		t.Errorf("Expected 3 queries in stats, got %+v", got.Stats)
	}

	rec = s.do(t, http.MethodDelete, "/api/base-terms/"+bt.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/base-terms/"+bt.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestGenerateErrors(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/base-terms", dto.CreateBaseTermRequest{Term: "bakery"})
	bt := decodeBody[domain.BaseTerm](t, rec)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"unknown base term", "/api/base-terms/missing/generate", allCanada(), http.StatusNotFound},
		{"no valid locations", "/api/base-terms/" + bt.ID + "/generate", dto.SelectionRequest{Countries: []string{"US"}, Provinces: []string{"ALL"}, Cities: []string{"ALL"}}, http.StatusBadRequest},
		{"bad country code", "/api/base-terms/" + bt.ID + "/generate", dto.SelectionRequest{Countries: []string{"canada"}}, http.StatusBadRequest},
		{"unknown field", "/api/base-terms/" + bt.ID + "/generate", map[string]any{"regions": []string{"x"}}, http.StatusBadRequest},
		{"estimate unknown base term", "/api/base-terms/missing/estimate", allCanada(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, http.MethodPost, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestQueriesEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	rec := s.do(t, http.MethodPost, "/api/queries", dto.CreateQueryRequest{Term: "dentist", City: "Ottawa", Province: "ON", Country: "CA"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	q := decodeBody[domain.LocalQuery](t, rec)

	if rec := s.do(t, http.MethodPost, "/api/queries", dto.CreateQueryRequest{Term: "dentist", City: "Ottawa", Province: "ON", Country: "CA"}); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate query, got %d", rec.Code)
	}

	if err := s.extraction.Process(ctx, q.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	rec = s.do(t, http.MethodGet, "/api/queries?status=complete", nil)
	list := decodeBody[dto.QueryListResponse](t, rec)
	if len(list.Items) != 1 || list.Pagination.TotalItems != 1 {
		t.Errorf("unexpected list %+v", list)
	}
	if rec := s.do(t, http.MethodGet, "/api/queries?status=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad status, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/queries/"+q.ID+"/versions", nil)
	versions := decodeBody[[]domain.QueryVersion](t, rec)
	if len(versions) != 1 || !versions[0].IsLatest {
		t.Fatalf("unexpected versions %+v", versions)
	}
	base := "/api/queries/" + q.ID + "/versions/" + versions[0].ID

	rec = s.do(t, http.MethodGet, base+"/businesses", nil)
	businesses := decodeBody[[]domain.VersionBusiness](t, rec)
	if len(businesses) != 5 || businesses[0].GooglePosition != 1 {
		t.Fatalf("unexpected businesses %d", len(businesses))
	}
	if rec := s.do(t, http.MethodGet, base+"/businesses?sort_by=name", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad sort, got %d", rec.Code)
	}

	first := businesses[0].PlaceID
	rec = s.do(t, http.MethodPatch, base+"/businesses/"+first+"/position", map[string]int{"position": 10})
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPatch, base+"/businesses/"+first+"/position", map[string]int{"position": 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for position 0, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, base+"/businesses?sort_by=custom_position", nil)
	if sorted := decodeBody[[]domain.VersionBusiness](t, rec); sorted[len(sorted)-1].PlaceID != first {
		t.Errorf("Expected %s last by custom position, got %s", first, sorted[len(sorted)-1].PlaceID)
	}

	rec = s.do(t, http.MethodGet, base+"/quality-report", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "overall_score") {
		t.Errorf("unexpected quality report %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, base+"/export.csv", nil)
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Errorf("Expected header and 5 rows, got %d", len(rows))
	}

	rec = s.do(t, http.MethodPost, base+"/publish", nil)
	if res := decodeBody[app.PublishResult](t, rec); res.Saved != 5 {
		t.Errorf("Expected 5 saved, got %+v", res)
	}

	rec = s.do(t, http.MethodPatch, base+"/latest", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for latest, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPatch, "/api/queries/other/versions/"+versions[0].ID+"/latest", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign version, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/metadata/business-types", nil)
	if types := decodeBody[[]string](t, rec); len(types) != 1 || types[0] != "dentist" {
		t.Errorf("unexpected business types %v", types)
	}

	if rec := s.do(t, http.MethodDelete, "/api/queries/"+q.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/queries/"+q.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestQueueEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/base-terms", dto.CreateBaseTermRequest{Term: "gym"})
	bt := decodeBody[domain.BaseTerm](t, rec)
	s.do(t, http.MethodPost, "/api/base-terms/"+bt.ID+"/generate", allCanada())

	if rec := s.do(t, http.MethodPost, "/api/queue/pause", nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for pause, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/queue/add-all-pending", dto.AddAllPendingRequest{BaseTermID: bt.ID})
	if res := decodeBody[queue.EnqueueResult](t, rec); len(res.Added) != 3 {
		t.Errorf("Expected 3 added, got %+v", res)
	}

	rec = s.do(t, http.MethodGet, "/api/queue/status", nil)
	st := decodeBody[dto.QueueStatusResponse](t, rec)
	if !st.Paused || st.Waiting != 3 || st.Counts["paused"] != 3 || st.Stored.Paused != 3 {
		t.Errorf("unexpected status %+v", st)
	}

	if rec := s.do(t, http.MethodPost, "/api/queue/add", dto.QueueIDsRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty ids, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/queue/add", dto.QueueIDsRequest{QueryIDs: []string{"missing"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown ids, got %d", rec.Code)
	}

	waiting := s.queue.Waiting()
	rec = s.do(t, http.MethodPost, "/api/queue/remove", dto.QueueIDsRequest{QueryIDs: waiting[:1]})
	if ids := decodeBody[dto.IDsResponse](t, rec); ids.Count != 1 {
		t.Errorf("Expected 1 removed, got %+v", ids)
	}

	rec = s.do(t, http.MethodPost, "/api/queue/clear", nil)
	if ids := decodeBody[dto.IDsResponse](t, rec); ids.Count != 2 {
		t.Errorf("Expected 2 cleared, got %+v", ids)
	}

	rec = s.do(t, http.MethodPost, "/api/queue/resume", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for resume, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/queue/retry-failed", nil)
	if ids := decodeBody[dto.IDsResponse](t, rec); ids.Count != 0 {
		t.Errorf("Expected nothing to retry, got %+v", ids)
	}

	rec = s.do(t, http.MethodPost, "/api/queue/reset-stats", nil)
	if st := decodeBody[dto.QueueStatusResponse](t, rec); st.Processed != 0 || st.Failed != 0 || st.AvgDurationSeconds != 0 {
		t.Errorf("Expected zeroed stats, got %+v", st)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("term", "is required"), http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"duplicate query", domain.ErrDuplicateQuery, http.StatusConflict},
		{"busy", domain.ErrQueryBusy, http.StatusConflict},
		{"fatal", domain.Fatal("search", 403, errors.New("denied")), http.StatusServiceUnavailable},
		{"halted", domain.ErrQueueHalted, http.StatusServiceUnavailable},
		{"persistence", &domain.PersistenceError{Op: "put", Err: errors.New("disk")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			s.handler.writeError(rec, req, tt.err)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestListLocations(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/locations", nil)
	body := decodeBody[struct {
		Countries []locations.Country `json:"countries"`
	}](t, rec)
	if len(body.Countries) != 1 || len(body.Countries[0].Provinces) != 2 {
		t.Errorf("unexpected catalog %+v", body)
	}
}
