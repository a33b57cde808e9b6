package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
)

// ReportHandler serves attendance reports and raw session records.
type ReportHandler struct {
	store database.Store
}

// NewReportHandler creates a new report handler.
func NewReportHandler(store database.Store) *ReportHandler {
	return &ReportHandler{store: store}
}

// Get handles GET /api/v1/report. Rows come back newest first with
// running per-day totals. Optional ?name= and ?date= query parameters
// narrow the result.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rows, err := attendance.BuildReport(r.Context(), h.store)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	name := r.URL.Query().Get("name")
	date := r.URL.Query().Get("date")
	if name != "" || date != "" {
		filtered := make([]attendance.ReportRow, 0, len(rows))
		for _, row := range rows {
			if name != "" && row.Name != name {
				continue
			}
			if date != "" && row.Date != date {
				continue
			}
			filtered = append(filtered, row)
		}
		rows = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// Sessions handles GET /api/v1/sessions and returns the raw session
// records in chronological order.
func (h *ReportHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
