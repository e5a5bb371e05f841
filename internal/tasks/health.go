package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Health statuses
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// HealthReport is the health reply shared by the HTTP and NATS surfaces
type HealthReport struct {
	Status       string             `json:"status"`
	MonitorStats *MonitorStats      `json:"monitor_stats"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Host         *HostStats         `json:"host,omitempty"`
	Timestamp    string             `json:"timestamp"`
}

// HealthChecker assembles health reports. Metrics and Host are optional.
type HealthChecker struct {
	Stats   func() *MonitorStats
	Metrics func() (map[string]float64, error)
	Host    func(ctx context.Context) (*HostStats, error)
}

// NewHealthChecker reports stats and metrics with host figures from gopsutil
func NewHealthChecker(stats func() *MonitorStats, metrics func() (map[string]float64, error)) *HealthChecker {
	return &HealthChecker{Stats: stats, Metrics: metrics, Host: CollectHostStats}
}

// Check builds a report. The report is always usable; the error joins any
// optional section that could not be collected.
func (h *HealthChecker) Check(ctx context.Context) (*HealthReport, error) {
	stats := h.Stats()
	report := &HealthReport{
		Status:       HealthHealthy,
		MonitorStats: stats,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if stats.LastPassFailed {
		report.Status = HealthDegraded
	}

	var errs []error
	if h.Metrics != nil {
		m, err := h.Metrics()
		if err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		} else {
			report.Metrics = m
		}
	}
	if h.Host != nil {
		host, err := h.Host(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("host: %w", err))
		} else {
			report.Host = host
		}
	}

	return report, errors.Join(errs...)
}
