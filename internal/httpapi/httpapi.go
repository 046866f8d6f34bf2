package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"barledger/backend/internal/domain"
	"barledger/backend/internal/export"
	"barledger/backend/internal/service"
)

// API exposes the synced ledger to a local UI: the record snapshot, the
// derived analytics, the CSV export, mutations, and a force-sync trigger.
type API struct {
	engine        *service.Engine
	allowedOrigin string
}

func New(engine *service.Engine, allowedOrigin string) *API {
	return &API{
		engine:        engine,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/sales/", a.handleSaleActions)
	mux.HandleFunc("/api/v1/analytics", a.handleAnalytics)
	mux.HandleFunc("/api/v1/export/csv", a.handleExportCSV)
	mux.HandleFunc("/api/v1/sync", a.handleForceSync)
	mux.HandleFunc("/api/v1/status", a.handleStatus)
	mux.HandleFunc("/api/v1/targets", a.handleTargets)

	return a.withMiddleware(mux)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		observeRequest(r.Method, r.URL.Path, recorder.status, time.Since(startedAt))
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, time.Since(startedAt))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sales": a.engine.Snapshot()})
	case http.MethodPost:
		var payload domain.SalePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		created, err := a.engine.SubmitCreate(r.Context(), payload)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": created})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sales/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown resource"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var payload domain.SalePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		updated, err := a.engine.SubmitUpdate(r.Context(), id, payload)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": updated})
	case http.MethodDelete:
		if err := a.engine.SubmitDelete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	report := a.engine.Report(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (a *API) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	fileName := export.FileName(time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if err := export.WriteCSV(w, a.engine.Snapshot()); err != nil {
		log.Printf("[httpapi] WARN: csv export aborted mid-stream: %v", err)
	}
}

func (a *API) handleForceSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	a.engine.ForceSync(r.Context())
	a.writeStatus(w)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.writeStatus(w)
}

func (a *API) writeStatus(w http.ResponseWriter) {
	status := map[string]any{
		"connectivity": a.engine.Connectivity(),
		"state":        a.engine.State(),
		"record_count": len(a.engine.Snapshot()),
	}
	if syncedAt := a.engine.LastSyncedAt(); !syncedAt.IsZero() {
		status["last_synced_at"] = syncedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleTargets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"targets": a.engine.Targets()})
	case http.MethodPut:
		var targets domain.TargetConfig
		if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		if targets.Daily < 0 || targets.Weekly < 0 || targets.Monthly < 0 {
			writeError(w, http.StatusBadRequest, errors.New("targets must not be negative"))
			return
		}
		a.engine.SetTargets(r.Context(), targets)
		writeJSON(w, http.StatusOK, map[string]any{"targets": a.engine.Targets()})
	default:
		writeMethodNotAllowed(w)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrValidation) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message so internals never leak; 4xx are
	// user-facing and keep the original text.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
