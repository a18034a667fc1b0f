package httpapp

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/export"
	"github.com/cesargomez89/quarry/internal/http/dto"
	"github.com/cesargomez89/quarry/internal/store"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListQueries(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, size, errs := dto.ParsePage(values)
	params := dto.ListQueriesParams{
		BaseTermID: values.Get("base_term_id"),
		Status:     values.Get("status"),
		Page:       page,
		PageSize:   size,
	}
	errs = append(errs, params.Validate()...)
	if len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	result, err := h.Queries.List(r.Context(), app.ListQueriesInput{
		Filter:   store.QueryFilter{BaseTermID: params.BaseTermID, Status: domain.QueryStatus(params.Status)},
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewQueryListResponse(result))
}

func (h *Handler) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateQueryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	q, err := h.Queries.CreateSingle(r.Context(), req.ToInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) GetQuery(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Queries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.Queries.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Queries.Versions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []*domain.QueryVersion{}
	}
	h.writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) VersionBusinesses(w http.ResponseWriter, r *http.Request) {
	params := dto.BusinessesParams{SortBy: r.URL.Query().Get("sort_by")}
	if errs := params.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	businesses, err := h.Queries.VersionBusinesses(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"), params.SortBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if businesses == nil {
		businesses = []domain.VersionBusiness{}
	}
	h.writeJSON(w, http.StatusOK, businesses)
}

func (h *Handler) SetLatestVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.Queries.SetLatest(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) PublishVersion(w http.ResponseWriter, r *http.Request) {
	res, err := h.Queries.PublishVersion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"))
	var perr *domain.PersistenceError
	if errors.As(err, &perr) && res != nil {
		h.writeJSON(w, http.StatusInternalServerError, struct {
			Error  string             `json:"error"`
			Result *app.PublishResult `json:"result"`
		}{Error: perr.Error(), Result: res})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) QualityReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Queries.QualityReport(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	queryID, versionID := chi.URLParam(r, "id"), chi.URLParam(r, "vid")
	businesses, err := h.Queries.VersionBusinesses(r.Context(), queryID, versionID, constants.SortByCustom)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// buffer so a write failure can still produce an error response
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, app.Businesses(businesses)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", constants.MimeTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "businesses-"+versionID+".csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Warn("Failed to write CSV", "version_id", versionID, "error", err)
	}
}

func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req dto.PositionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	b, err := h.Queries.UpdatePosition(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"), chi.URLParam(r, "pid"), *req.Position)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}
