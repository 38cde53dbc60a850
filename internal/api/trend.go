package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/wealth/internal/snapshot"
	"github.com/mtlprog/wealth/internal/trend"
)

type trendResponse struct {
	Period string `json:"period"`
	trend.Report
}

// GetTrend handles GET /api/v1/trend?period=90d: net-worth movement and risk over the window.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = snapshot.DefaultPeriod
	}

	entries, err := h.snapshots.Period(period, h.now())
	if err != nil {
		if errors.Is(err, snapshot.ErrUnknownPeriod) {
			writeError(w, http.StatusBadRequest, "invalid period, expected one of 7d, 30d, 90d, 1y")
			return
		}
		slog.Error("failed to filter history", "period", period, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "no snapshots in period")
		return
	}

	writeJSON(w, http.StatusOK, trendResponse{Period: period, Report: trend.Analyze(entries)})
}
