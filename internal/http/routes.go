package httpapp

import (
	"errors"
	"net/http"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/http/dto"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"countries": h.Catalog.Countries()})
}

func (h *Handler) ListBaseTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.BaseTerms.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if terms == nil {
		terms = []*domain.BaseTerm{}
	}
	h.writeJSON(w, http.StatusOK, terms)
}

func (h *Handler) CreateBaseTerm(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBaseTermRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	bt, err := h.BaseTerms.Create(r.Context(), req.Term, req.Category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bt)
}

func (h *Handler) GetBaseTerm(w http.ResponseWriter, r *http.Request) {
	bt, err := h.BaseTerms.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bt)
}

func (h *Handler) DeleteBaseTerm(w http.ResponseWriter, r *http.Request) {
	if err := h.BaseTerms.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selection(w http.ResponseWriter, r *http.Request) (*dto.SelectionRequest, bool) {
	var req dto.SelectionRequest
	if !h.decode(w, r, &req) {
		return nil, false
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return nil, false
	}
	return &req, true
}

func (h *Handler) EstimateQueries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.BaseTerms.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, ok := h.selection(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, dto.EstimateResponse{BaseTermID: id, Count: h.Generate.Estimate(req.ToSelection())})
}

func (h *Handler) GenerateQueries(w http.ResponseWriter, r *http.Request) {
	req, ok := h.selection(w, r)
	if !ok {
		return
	}

	sum, err := h.Generate.Generate(r.Context(), chi.URLParam(r, "id"), req.ToSelection())
	var perr *domain.PersistenceError
	if errors.As(err, &perr) && sum != nil {
		h.Logger.Error("Generation partially failed", "created", sum.Created, "failed", sum.Failed, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, struct {
			Error   string               `json:"error"`
			Summary *app.GenerateSummary `json:"summary"`
		}{Error: perr.Error(), Summary: sum})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	bt, err := h.BaseTerms.RefreshStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bt)
}

func (h *Handler) BusinessTypes(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Queries.Metadata(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, meta.BusinessTypes)
}

func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Queries.Metadata(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, meta.Cities)
}
