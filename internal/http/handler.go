package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/http/dto"
	"github.com/cesargomez89/quarry/internal/locations"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	BaseTerms *app.BaseTermService
	Generate  *app.GenerateService
	Queries   *app.QueryService
	Queue     *app.QueueService
	Catalog   *locations.Catalog
	Logger    *logger.Logger

	// Credentials for HTTP basic auth on /api. Empty disables auth.
	Username string
	Password string
}

func NewHandler(bt *app.BaseTermService, gen *app.GenerateService, qs *app.QueryService, queue *app.QueueService, catalog *locations.Catalog, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		BaseTerms: bt,
		Generate:  gen,
		Queries:   qs,
		Queue:     queue,
		Catalog:   catalog,
		Logger:    log.WithComponent("http"),
	}
}

// Router builds the full chi router with middleware and routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		if h.Password != "" {
			r.Use(middleware.BasicAuth("quarry", map[string]string{h.Username: h.Password}))
		}

		r.Get("/locations", h.ListLocations)

		r.Route("/base-terms", func(r chi.Router) {
			r.Get("/", h.ListBaseTerms)
			r.Post("/", h.CreateBaseTerm)
			r.Get("/{id}", h.GetBaseTerm)
			r.Delete("/{id}", h.DeleteBaseTerm)
			r.Post("/{id}/estimate", h.EstimateQueries)
			r.Post("/{id}/generate", h.GenerateQueries)
			r.Post("/{id}/refresh-stats", h.RefreshStats)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", h.ListQueries)
			r.Post("/", h.CreateQuery)
			r.Get("/{id}", h.GetQuery)
			r.Delete("/{id}", h.DeleteQuery)
			r.Get("/{id}/versions", h.ListVersions)
			r.Route("/{id}/versions/{vid}", func(r chi.Router) {
				r.Get("/businesses", h.VersionBusinesses)
				r.Patch("/latest", h.SetLatestVersion)
				r.Post("/publish", h.PublishVersion)
				r.Get("/quality-report", h.QualityReport)
				r.Get("/export.csv", h.ExportCSV)
				r.Patch("/businesses/{pid}/position", h.UpdatePosition)
			})
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/status", h.QueueStatus)
			r.Post("/add", h.QueueAdd)
			r.Post("/add-all-pending", h.QueueAddAllPending)
			r.Post("/pause", h.QueuePause)
			r.Post("/resume", h.QueueResume)
			r.Post("/retry-failed", h.QueueRetryFailed)
			r.Post("/remove", h.QueueRemove)
			r.Post("/clear", h.QueueClear)
			r.Post("/reset-stats", h.QueueResetStats)
		})

		r.Get("/metadata/business-types", h.BusinessTypes)
		r.Get("/metadata/cities", h.Cities)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", constants.MimeTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: dto.ToResponse(errs), Fields: dto.ToMap(errs)})
}

// writeError maps service errors to status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var perr *domain.PersistenceError

	switch {
	case errors.As(err, &verr):
		resp := dto.ErrorResponse{Error: verr.Error()}
		if verr.Field != "" {
			resp.Fields = map[string]string{verr.Field: verr.Message}
		}
		h.writeJSON(w, http.StatusBadRequest, resp)
		return
	case errors.Is(err, domain.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrDuplicateQuery), errors.Is(err, domain.ErrDuplicateBaseTerm), errors.Is(err, domain.ErrQueryBusy):
		h.writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		return
	case domain.IsFatal(err), errors.Is(err, domain.ErrQueueHalted):
		h.writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
		return
	case errors.As(err, &perr):
		h.Logger.Error("Persistence failure", "method", r.Method, "path", r.URL.Path, "written", perr.Written, "error", err)
	default:
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
}

// decode reads a JSON body into v. An empty body leaves v at its zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
