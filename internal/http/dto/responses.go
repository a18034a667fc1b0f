package dto

import (
	"time"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/domain"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type EstimateResponse struct {
	BaseTermID string `json:"base_term_id"`
	Count      int    `json:"count"`
}

type QueryListResponse struct {
	Items      []*domain.LocalQuery `json:"items"`
	Pagination *Pagination          `json:"pagination"`
}

func NewQueryListResponse(p *app.QueryPage) QueryListResponse {
	items := p.Items
	if items == nil {
		items = []*domain.LocalQuery{}
	}
	return QueryListResponse{
		Items:      items,
		Pagination: NewPagination(p.Page, p.PageSize, p.Total),
	}
}

// QueueStatusResponse flattens the queue snapshot for clients that poll it.
type QueueStatusResponse struct {
	Counts             map[string]int       `json:"counts"`
	Waiting            int                  `json:"waiting"`
	Paused             bool                 `json:"paused"`
	Current            string               `json:"current,omitempty"`
	Processed          int                  `json:"processed"`
	Failed             int                  `json:"failed"`
	AvgDurationSeconds float64              `json:"avg_duration_seconds"`
	EstimatedSeconds   float64              `json:"estimated_remaining_seconds"`
	FatalError         string               `json:"fatal_error,omitempty"`
	Stored             domain.BaseTermStats `json:"stored"`
	GeneratedAt        string               `json:"generated_at"`
}

func NewQueueStatusResponse(s *app.QueueStatus) QueueStatusResponse {
	return QueueStatusResponse{
		Counts: map[string]int{
			string(domain.QueryStatusQueued):   s.Counts.Queued,
			string(domain.QueryStatusRunning):  s.Counts.Running,
			string(domain.QueryStatusPaused):   s.Counts.Paused,
			string(domain.QueryStatusComplete): s.Counts.Complete,
			string(domain.QueryStatusError):    s.Counts.Error,
		},
		Waiting:            s.Waiting,
		Paused:             s.Paused,
		Current:            s.Current,
		Processed:          s.Processed,
		Failed:             s.Failed,
		AvgDurationSeconds: s.AvgDuration.Seconds(),
		EstimatedSeconds:   s.EstimatedRemaining.Seconds(),
		FatalError:         s.FatalError,
		Stored:             s.Stored,
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

type IDsResponse struct {
	QueryIDs []string `json:"query_ids"`
	Count    int      `json:"count"`
}

func NewIDsResponse(ids []string) IDsResponse {
	if ids == nil {
		ids = []string{}
	}
	return IDsResponse{QueryIDs: ids, Count: len(ids)}
}
