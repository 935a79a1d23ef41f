package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/export"
	"github.com/ayalamanuliber/contractor-hub/internal/hub"
	"github.com/ayalamanuliber/contractor-hub/internal/store"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	hub       *hub.Hub
	exporter  *export.Engine
	store     store.Store // nil disables export logging
	exportDir string
	started   time.Time
}

// NewHandlers creates a Handlers instance.
func NewHandlers(h *hub.Hub, exporter *export.Engine, st store.Store, exportDir string) *Handlers {
	return &Handlers{
		hub:       h,
		exporter:  exporter,
		store:     st,
		exportDir: exportDir,
		started:   time.Now(),
	}
}

// HealthCheck reports service liveness and dataset age.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ds, err := h.hub.Dataset(r.Context(), false)
	status := "healthy"
	info := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).String(),
	}
	if err != nil {
		info["status"] = "degraded"
		info["error"] = err.Error()
		respondJSON(w, http.StatusOK, info)
		return
	}
	info["records"] = len(ds.Contractors)
	info["unified_at"] = ds.UnifiedAt
	respondJSON(w, http.StatusOK, info)
}

// ListContractors serves the filtered, paginated contractor list.
func (h *Handlers) ListContractors(w http.ResponseWriter, r *http.Request) {
	if _, err := h.hub.Dataset(r.Context(), false); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	q := r.URL.Query()
	params := hub.QueryParams{
		Page:      parseInt(q.Get("page"), 0),
		Limit:     parseInt(q.Get("limit"), 0),
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		State:     q.Get("state"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	params.MinCompletion = parseInt(q.Get("min_completion"), 0)
	if v := q.Get("has_campaign"); v != "" {
		b := v == "true" || v == "1"
		params.HasCampaign = &b
	}

	respondJSON(w, http.StatusOK, h.hub.Query(params))
}

// GetContractor serves one contractor by normalized business id.
func (h *Handlers) GetContractor(w http.ResponseWriter, r *http.Request) {
	rec, err := h.hub.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "contractor not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// UpdateContractor applies manual field edits and returns the rescore result.
func (h *Handlers) UpdateContractor(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	res, err := h.hub.UpdateRecord(r.Context(), id, updates)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  res,
	})
}

// MarkEmailSent records a campaign sequence email as sent.
func (h *Handlers) MarkEmailSent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "email number must be an integer")
		return
	}

	rec, err := h.hub.MarkEmailSent(r.Context(), id, n)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			respondError(w, http.StatusNotFound, err.Error())
		case strings.Contains(err.Error(), "out of range"):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"business_id":     rec.BusinessID,
		"campaign_status": rec.CampaignStatus,
		"sent_count":      rec.CampaignData.SentCount(),
	})
}

// GetMetrics serves dataset-wide quality metrics.
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ds, err := h.hub.Dataset(r.Context(), false)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"database_info": ds.DatabaseInfo,
		"metrics":       ds.Metrics,
	})
}

// GetExecution serves the outreach funnel state.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	if _, err := h.hub.Dataset(r.Context(), false); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.hub.Execution())
}

// Refresh forces a re-unification regardless of cache age.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ds, err := h.hub.Dataset(r.Context(), true)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"records":    len(ds.Contractors),
		"unified_at": ds.UnifiedAt,
	})
}

type exportRequest struct {
	Filename           string `json:"filename"`
	Format             string `json:"format"`
	OnlyEnhanced       bool   `json:"only_enhanced"`
	MinCompletionScore int    `json:"min_completion_score"`
	Since              string `json:"since"` // RFC 3339
}

// Export writes a filtered CSV or XLSX snapshot and returns the run result.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	ds, err := h.hub.Dataset(r.Context(), false)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	opts := export.Options{
		OnlyEnhanced:       req.OnlyEnhanced,
		MinCompletionScore: req.MinCompletionScore,
		Format:             export.FormatCSV,
	}
	if req.Format == "xlsx" {
		opts.Format = export.FormatXLSX
	}
	if req.Since != "" {
		since, perr := time.Parse(time.RFC3339, req.Since)
		if perr != nil {
			respondError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		opts.Since = &since
	}

	name := req.Filename
	if name == "" {
		name = "contractors_export_" + time.Now().UTC().Format("20060102_150405") + "." + string(opts.Format)
	}
	path := filepath.Join(h.exportDir, filepath.Base(name))

	result, err := h.exporter.Export(ds.Contractors, path, opts)
	h.logExport(r, result)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) logExport(r *http.Request, result export.Result) {
	if h.store == nil {
		return
	}
	err := h.store.SaveExportLog(r.Context(), store.ExportLog{
		Path:       result.Path,
		Format:     strings.TrimPrefix(filepath.Ext(result.Path), "."),
		Exported:   result.Exported,
		Skipped:    result.Skipped,
		BackupPath: result.BackupPath,
		Success:    result.Success,
		Error:      result.Error,
	})
	if err != nil {
		zap.L().Warn("export log persist failed", zap.Error(err))
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
