package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/plugin"
	"github.com/stone-age-io/links-health-monitor/internal/store"
	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Monitor is the scheduled pass exposed over HTTP
type Monitor interface {
	Info() tasks.TaskInfo
	RunNow() error
	NextRun() (time.Time, error)
}

// ResultReader reads persisted pass results
type ResultReader interface {
	Latest(ctx context.Context) (*tasks.Result, error)
	Get(ctx context.Context, name string) (*tasks.Result, error)
	List(ctx context.Context) ([]*tasks.Result, error)
}

// HealthSource builds health reports
type HealthSource interface {
	Check(ctx context.Context) (*tasks.HealthReport, error)
}

// DescriptorSource returns the console descriptor currently in effect
type DescriptorSource interface {
	Descriptor() (plugin.Descriptor, bool)
}

// Handler serves the monitor endpoints
type Handler struct {
	monitor    Monitor
	results    ResultReader
	health     HealthSource
	descriptor DescriptorSource
	logger     *zap.Logger
}

// NewHandler creates a Handler
func NewHandler(monitor Monitor, results ResultReader, health HealthSource, descriptor DescriptorSource, logger *zap.Logger) *Handler {
	return &Handler{
		monitor:    monitor,
		results:    results,
		health:     health,
		descriptor: descriptor,
		logger:     logger,
	}
}

// GetStatus handles GET status, the task snapshot for the console panel
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Info())
}

// GetLatestResult handles GET latestResult, 204 when no pass has been persisted
func (h *Handler) GetLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.results.Latest(r.Context())
	if errors.Is(err, store.ErrNoResult) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.logger.Error("Failed to read latest result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListResults handles GET results, newest first
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// GetResult handles GET results/{name}
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := h.results.Get(r.Context(), name)
	if errors.Is(err, store.ErrNoResult) {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to read result", zap.String("result", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Run handles POST run, triggering an immediate pass
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.RunNow(); err != nil {
		h.logger.Warn("Failed to trigger pass", zap.Error(err))
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info("Pass triggered over HTTP")

	resp := map[string]string{"status": "triggered"}
	if next, err := h.monitor.NextRun(); err == nil {
		resp["next_run"] = next.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// GetDescriptor handles GET /plugin/descriptor, 404 until the plugin is defined
func (h *Handler) GetDescriptor(w http.ResponseWriter, r *http.Request) {
	d, ok := h.descriptor.Descriptor()
	if !ok {
		writeError(w, http.StatusNotFound, "plugin not defined")
		return
	}
	writeJSON(w, http.StatusOK, d.Manifest())
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.health.Check(r.Context())
	if err != nil {
		h.logger.Warn("Health report incomplete", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
