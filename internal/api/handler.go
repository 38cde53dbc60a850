package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/events"
	"github.com/mtlprog/wealth/internal/export"
	"github.com/mtlprog/wealth/internal/ledger"
	"github.com/mtlprog/wealth/internal/portfolio"
	"github.com/mtlprog/wealth/internal/refresh"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// maxImportSize bounds the backup document accepted by the import endpoint.
const maxImportSize = 10 << 20

// LedgerStore loads the ledger and replaces it on import.
type LedgerStore interface {
	refresh.LedgerStore
	Replace(ctx context.Context, l domain.Ledger) error
}

// Handler provides HTTP endpoints for the dashboard API.
type Handler struct {
	refresher *refresh.Service
	snapshots *snapshot.Service
	events    *events.Bus
	store     LedgerStore
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(refresher *refresh.Service, snapshots *snapshot.Service, bus *events.Bus, store LedgerStore) *Handler {
	return &Handler{
		refresher: refresher,
		snapshots: snapshots,
		events:    bus,
		store:     store,
		now:       time.Now,
	}
}

type summaryResponse struct {
	portfolio.Summary
	Categories map[domain.Category]domain.CategoryTotal `json:"categories"`
	Accrual    accrual.Result                           `json:"accrual"`
	Healthy    bool                                     `json:"healthy"`
	Warnings   []string                                 `json:"warnings,omitempty"`
}

// lastResult returns the most recent cycle or writes 503 when none has completed yet.
func (h *Handler) lastResult(w http.ResponseWriter) (refresh.Result, bool) {
	res, ok := h.refresher.Last()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no refresh has completed yet")
		return refresh.Result{}, false
	}
	return res, true
}

// GetSummary handles GET /api/v1/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.lastResult(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:    portfolio.Summarize(res.Ledger, res.Totals, res.CompletedAt),
		Categories: res.Totals.Categories,
		Accrual:    res.Accrual,
		Healthy:    res.Accrual.Healthy(),
		Warnings:   res.Warnings,
	})
}

// ListAssets handles GET /api/v1/assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	res, ok := h.lastResult(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Assessments)
}

// GetHistory handles GET /api/v1/history?period=30d.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.snapshots.Period(r.URL.Query().Get("period"), h.now())
	if err != nil {
		if errors.Is(err, snapshot.ErrUnknownPeriod) {
			writeError(w, http.StatusBadRequest, "invalid period, expected one of 7d, 30d, 90d, 1y")
			return
		}
		slog.Error("failed to filter history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListEvents handles GET /api/v1/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.events.Recent())
}

// Refresh handles POST /api/v1/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.refresher.Run(r.Context(), h.now())
	if err != nil {
		if errors.Is(err, refresh.ErrCycleInFlight) {
			writeError(w, http.StatusConflict, "refresh already in progress")
			return
		}
		slog.Error("failed to refresh", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportBackup handles GET /api/v1/export.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	l, _, err := h.store.Load(r.Context())
	if err != nil {
		slog.Error("failed to load ledger for export", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var buf bytes.Buffer
	now := h.now()
	if err := ledger.Export(&buf, l, h.snapshots.History(), now); err != nil {
		slog.Error("failed to encode backup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="wealth-backup-`+now.Format("2006-01-02")+`.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
	}
}

// ExportWorkbook handles GET /api/v1/export.xlsx.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var holdings []domain.Assessment
	if res, ok := h.refresher.Last(); ok {
		holdings = res.Assessments
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, h.snapshots.History().Entries, holdings); err != nil {
		slog.Error("failed to build workbook", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="wealth-`+h.now().Format("2006-01-02")+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
	}
}

type importResponse struct {
	Assets   int                       `json:"assets"`
	Entries  int                       `json:"entries"`
	Rejected []*domain.ValidationError `json:"rejected,omitempty"`
}

// ImportBackup handles POST /api/v1/import. It replaces the ledger and the history.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	b, report, err := ledger.Import(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid backup document")
		return
	}

	if err := h.store.Replace(r.Context(), b.Ledger); err != nil {
		slog.Error("failed to save imported ledger", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save ledger")
		return
	}
	if err := h.snapshots.Replace(r.Context(), b.History); err != nil {
		slog.Error("failed to save imported history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save history")
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Assets:   b.Ledger.Len(),
		Entries:  len(b.History.Entries),
		Rejected: report.Rejected,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
