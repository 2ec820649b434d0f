package dto

import (
	"time"

	"github.com/netesim/backend/internal/domain/catalog"
)

// SyncOutcomeResponse is the API view of one sync run's result
type SyncOutcomeResponse struct {
	Total        int                     `json:"total"`
	Created      []string                `json:"created"`
	Unchanged    int                     `json:"unchanged"`
	Deleted      []int64                 `json:"deleted"`
	CreateErrors []catalog.SyncItemError `json:"create_errors"`
	DeleteErrors []catalog.SyncItemError `json:"delete_errors"`
}

// NewSyncOutcomeResponse maps a domain outcome to its API view
func NewSyncOutcomeResponse(o *catalog.SyncOutcome) SyncOutcomeResponse {
	return SyncOutcomeResponse{
		Total:        o.Total,
		Created:      o.Created,
		Unchanged:    o.Unchanged,
		Deleted:      o.Deleted,
		CreateErrors: o.CreateErrors,
		DeleteErrors: o.DeleteErrors,
	}
}

// SyncLogResponse is the API view of one sync log entry
type SyncLogResponse struct {
	ID           string               `json:"id"`
	SyncTime     time.Time            `json:"sync_time"`
	Total        int                  `json:"total"`
	Updated      int                  `json:"updated"`
	Deleted      int                  `json:"deleted"`
	Errors       int                  `json:"errors"`
	Unchanged    int                  `json:"unchanged"`
	Status       string               `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Details      *SyncOutcomeResponse `json:"details,omitempty"`
}

// NewSyncLogResponse maps a domain log entry to its API view
func NewSyncLogResponse(e catalog.SyncLogEntry) SyncLogResponse {
	resp := SyncLogResponse{
		ID:           e.ID.String(),
		SyncTime:     e.SyncTime,
		Total:        e.Total,
		Updated:      e.Updated,
		Deleted:      e.Deleted,
		Errors:       e.Errors,
		Unchanged:    e.Unchanged,
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
	}
	if e.Details != nil {
		details := NewSyncOutcomeResponse(e.Details)
		resp.Details = &details
	}
	return resp
}

// NewSyncLogResponses maps a slice of log entries
func NewSyncLogResponses(entries []catalog.SyncLogEntry) []SyncLogResponse {
	out := make([]SyncLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewSyncLogResponse(e))
	}
	return out
}
