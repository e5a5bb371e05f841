package nats

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/store"
	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

// Monitor is the scheduled pass the handlers report on and trigger
type Monitor interface {
	Info() tasks.TaskInfo
	RunNow() error
	NextRun() (time.Time, error)
}

// ResultReader reads persisted pass results
type ResultReader interface {
	Latest(ctx context.Context) (*tasks.Result, error)
}

// HealthSource builds health reports
type HealthSource interface {
	Check(ctx context.Context) (*tasks.HealthReport, error)
}

// MetricsSnapshot renders the Prometheus text exposition
type MetricsSnapshot interface {
	Snapshot() (string, error)
}

// CommandHandlers manages all command subscriptions and handlers
type CommandHandlers struct {
	logger        *zap.Logger
	subjectPrefix string
	monitor       Monitor
	results       ResultReader
	health        HealthSource
	metrics       MetricsSnapshot
	timeout       time.Duration
}

// NewCommandHandlers creates a new command handler manager
func NewCommandHandlers(logger *zap.Logger, subjectPrefix string, monitor Monitor, results ResultReader, health HealthSource, metrics MetricsSnapshot) *CommandHandlers {
	return &CommandHandlers{
		logger:        logger,
		subjectPrefix: subjectPrefix,
		monitor:       monitor,
		results:       results,
		health:        health,
		metrics:       metrics,
		timeout:       5 * time.Second,
	}
}

// handleWithRecovery wraps a command handler with panic recovery
func (h *CommandHandlers) handleWithRecovery(name string, handler nats.MsgHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("Panic recovered in command handler",
					zap.String("handler", name),
					zap.String("subject", msg.Subject),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))

				h.respond(msg, errorResponse{
					Status:    "error",
					Error:     fmt.Sprintf("Internal error: handler panicked: %v", r),
					Timestamp: now(),
				})
			}
		}()

		handler(msg)
	}
}

// SubscribeAll subscribes to every command subject under the prefix
func (h *CommandHandlers) SubscribeAll(client *Client) error {
	commands := []struct {
		name    string
		handler nats.MsgHandler
	}{
		{"ping", h.handlePing},
		{"status", h.handleStatus},
		{"latest", h.handleLatest},
		{"run", h.handleRun},
		{"health", h.handleHealth},
		{"metrics", h.handleMetrics},
	}

	for _, c := range commands {
		if _, err := client.Subscribe(
			CommandSubject(h.subjectPrefix, c.name),
			h.handleWithRecovery(c.name, c.handler),
		); err != nil {
			return err
		}
	}

	return nil
}

// Response structures

type pingResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type statusResponse struct {
	Status    string         `json:"status"`
	Task      tasks.TaskInfo `json:"task"`
	Timestamp string         `json:"timestamp"`
}

type latestResponse struct {
	Status    string        `json:"status"`
	Result    *tasks.Result `json:"result,omitempty"`
	Timestamp string        `json:"timestamp"`
}

type runResponse struct {
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	NextRun   string `json:"next_run,omitempty"`
	Timestamp string `json:"timestamp"`
}

type metricsResponse struct {
	Status    string `json:"status"`
	Metrics   string `json:"metrics"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// handlePing responds to ping commands
func (h *CommandHandlers) handlePing(msg *nats.Msg) {
	h.logger.Debug("Received ping command")
	h.respond(msg, h.ping())
}

func (h *CommandHandlers) ping() pingResponse {
	return pingResponse{Status: "pong", Timestamp: now()}
}

// handleStatus returns the current task snapshot
func (h *CommandHandlers) handleStatus(msg *nats.Msg) {
	h.logger.Debug("Received status command")
	h.respond(msg, h.status())
}

func (h *CommandHandlers) status() statusResponse {
	return statusResponse{
		Status:    "success",
		Task:      h.monitor.Info(),
		Timestamp: now(),
	}
}

// handleLatest returns the newest persisted result
func (h *CommandHandlers) handleLatest(msg *nats.Msg) {
	h.logger.Debug("Received latest result command")
	h.respond(msg, h.latest())
}

func (h *CommandHandlers) latest() any {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	r, err := h.results.Latest(ctx)
	if errors.Is(err, store.ErrNoResult) {
		return latestResponse{Status: "empty", Timestamp: now()}
	}
	if err != nil {
		h.logger.Error("Failed to read latest result", zap.Error(err))
		return errorResponse{Status: "error", Error: err.Error(), Timestamp: now()}
	}

	return latestResponse{Status: "success", Result: r, Timestamp: now()}
}

// handleRun triggers an immediate pass
func (h *CommandHandlers) handleRun(msg *nats.Msg) {
	h.logger.Info("Received run command")
	h.respond(msg, h.run())
}

func (h *CommandHandlers) run() any {
	if err := h.monitor.RunNow(); err != nil {
		h.logger.Error("Failed to trigger pass", zap.Error(err))
		return errorResponse{Status: "error", Error: err.Error(), Timestamp: now()}
	}
	resp := runResponse{Status: "success", Result: "pass triggered", Timestamp: now()}
	if next, err := h.monitor.NextRun(); err == nil {
		resp.NextRun = next.Format(time.RFC3339)
	}
	return resp
}

// handleHealth returns monitor health and host resources
func (h *CommandHandlers) handleHealth(msg *nats.Msg) {
	h.logger.Debug("Received health check command")
	resp := h.healthReport()
	h.respond(msg, resp)

	h.logger.Debug("Sent health response",
		zap.String("status", resp.Status),
		zap.Float64("memory_mb", resp.MonitorStats.MemoryUsageMB),
		zap.Int("goroutines", resp.MonitorStats.Goroutines))
}

func (h *CommandHandlers) healthReport() *tasks.HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	report, err := h.health.Check(ctx)
	if err != nil {
		h.logger.Warn("Health report incomplete", zap.Error(err))
	}
	return report
}

// handleMetrics returns the Prometheus text exposition
func (h *CommandHandlers) handleMetrics(msg *nats.Msg) {
	h.logger.Debug("Received metrics command")
	h.respond(msg, h.metricsText())
}

func (h *CommandHandlers) metricsText() any {
	text, err := h.metrics.Snapshot()
	if err != nil {
		h.logger.Error("Failed to render metrics", zap.Error(err))
		return errorResponse{Status: "error", Error: err.Error(), Timestamp: now()}
	}
	return metricsResponse{Status: "success", Metrics: text, Timestamp: now()}
}

// respond marshals v and replies to msg
func (h *CommandHandlers) respond(msg *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal response", zap.Error(err))
		data, _ = json.Marshal(errorResponse{Status: "error", Error: "failed to encode response", Timestamp: now()})
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Debug("Failed to send response", zap.Error(err), zap.String("subject", msg.Subject))
	}
}
