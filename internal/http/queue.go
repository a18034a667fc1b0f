package httpapp

import (
	"net/http"

	"github.com/cesargomez89/quarry/internal/http/dto"
)

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Queue.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewQueueStatusResponse(st))
}

func (h *Handler) QueueAdd(w http.ResponseWriter, r *http.Request) {
	var req dto.QueueIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	res, err := h.Queue.Enqueue(r.Context(), req.QueryIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) QueueAddAllPending(w http.ResponseWriter, r *http.Request) {
	var req dto.AddAllPendingRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Queue.EnqueueAllPending(r.Context(), req.BaseTermID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) QueuePause(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Queue.Pause(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIDsResponse(ids))
}

func (h *Handler) QueueResume(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Queue.Resume(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIDsResponse(ids))
}

func (h *Handler) QueueRetryFailed(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Queue.RetryFailed(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIDsResponse(ids))
}

func (h *Handler) QueueRemove(w http.ResponseWriter, r *http.Request) {
	var req dto.QueueIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	ids, err := h.Queue.Remove(r.Context(), req.QueryIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIDsResponse(ids))
}

func (h *Handler) QueueClear(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Queue.Clear(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewIDsResponse(ids))
}

func (h *Handler) QueueResetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Queue.ResetStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewQueueStatusResponse(st))
}
