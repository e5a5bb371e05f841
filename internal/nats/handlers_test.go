package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/status"
	"github.com/stone-age-io/links-health-monitor/internal/store"
	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

type fakeMonitor struct {
	info    tasks.TaskInfo
	runErr  error
	runs    int
	nextRun time.Time
}

func (f *fakeMonitor) NextRun() (time.Time, error) {
	if f.nextRun.IsZero() {
		return time.Time{}, errors.New("no job")
	}
	return f.nextRun, nil
}

func (f *fakeMonitor) Info() tasks.TaskInfo { return f.info }

func (f *fakeMonitor) RunNow() error {
	f.runs++
	return f.runErr
}

type fakeResults struct {
	result *tasks.Result
	err    error
}

func (f *fakeResults) Latest(context.Context) (*tasks.Result, error) {
	return f.result, f.err
}

type fakeStats struct {
	stats tasks.MonitorStats
}

func (f *fakeStats) checker() *tasks.HealthChecker {
	return &tasks.HealthChecker{
		Stats: func() *tasks.MonitorStats {
			s := f.stats
			return &s
		},
		Host: func(context.Context) (*tasks.HostStats, error) {
			return &tasks.HostStats{CPUCount: 4, MemoryTotalGB: 16, MemoryFreeGB: 8}, nil
		},
	}
}

type fakeMetrics struct {
	text string
	err  error
}

func (f *fakeMetrics) Snapshot() (string, error) { return f.text, f.err }

func newTestHandlers(m *fakeMonitor, r *fakeResults, s *fakeStats, x *fakeMetrics) *CommandHandlers {
	return NewCommandHandlers(zap.NewNop(), "links.health", m, r, s.checker(), x)
}

// TestPing tests the ping response
func TestPing(t *testing.T) {
	h := newTestHandlers(&fakeMonitor{}, &fakeResults{}, &fakeStats{}, &fakeMetrics{})

	resp := h.ping()
	if resp.Status != "pong" {
		t.Errorf("Status = %q, want pong", resp.Status)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", resp.Timestamp, err)
	}
}

// TestStatus tests that the task snapshot is passed through
func TestStatus(t *testing.T) {
	m := &fakeMonitor{info: tasks.TaskInfo{
		TaskStatus:          status.Running,
		TaskStatusLabel:     status.Running.Label(),
		LinkMonitorProgress: "3/10（无需监测友链数1）",
	}}
	h := newTestHandlers(m, &fakeResults{}, &fakeStats{}, &fakeMetrics{})

	resp := h.status()
	if resp.Task.TaskStatus != status.Running {
		t.Errorf("TaskStatus = %v, want RUNNING", resp.Task.TaskStatus)
	}
	if resp.Task.LinkMonitorProgress != m.info.LinkMonitorProgress {
		t.Errorf("LinkMonitorProgress = %q", resp.Task.LinkMonitorProgress)
	}
}

// TestLatest tests each outcome of the latest result command
func TestLatest(t *testing.T) {
	result := tasks.NewResult(time.Now())

	tests := []struct {
		name       string
		results    *fakeResults
		wantStatus string
	}{
		{name: "found", results: &fakeResults{result: result}, wantStatus: "success"},
		{name: "empty store", results: &fakeResults{err: store.ErrNoResult}, wantStatus: "empty"},
		{name: "read failure", results: &fakeResults{err: errors.New("disk gone")}, wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&fakeMonitor{}, tt.results, &fakeStats{}, &fakeMetrics{})

			switch resp := h.latest().(type) {
			case latestResponse:
				if resp.Status != tt.wantStatus {
					t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
				}
				if tt.wantStatus == "success" && resp.Result != result {
					t.Error("Result not passed through")
				}
			case errorResponse:
				if tt.wantStatus != "error" {
					t.Errorf("got error response %q, want %q", resp.Error, tt.wantStatus)
				}
			default:
				t.Fatalf("unexpected response %T", resp)
			}
		})
	}
}

// TestRun tests the run trigger
func TestRun(t *testing.T) {
	m := &fakeMonitor{}
	h := newTestHandlers(m, &fakeResults{}, &fakeStats{}, &fakeMetrics{})

	if resp, ok := h.run().(runResponse); !ok || resp.Status != "success" {
		t.Errorf("run() = %+v, want success", resp)
	}
	if m.runs != 1 {
		t.Errorf("runs = %d, want 1", m.runs)
	}

	m.nextRun = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	if resp, ok := h.run().(runResponse); !ok || resp.NextRun != "2025-01-02T00:00:00Z" {
		t.Errorf("run() = %+v, want next_run reported", resp)
	}

	m.runErr = errors.New("job not scheduled")
	resp, ok := h.run().(errorResponse)
	if !ok {
		t.Fatal("run() did not return an error response")
	}
	if resp.Error != "job not scheduled" {
		t.Errorf("Error = %q", resp.Error)
	}
}

// TestHealth tests health status derivation
func TestHealth(t *testing.T) {
	tests := []struct {
		name  string
		stats tasks.MonitorStats
		want  string
	}{
		{name: "no passes", stats: tasks.MonitorStats{}, want: tasks.HealthHealthy},
		{name: "recovered after error", stats: tasks.MonitorStats{PassesFailed: 1, LastError: "timeout"}, want: tasks.HealthHealthy},
		{name: "last pass failed", stats: tasks.MonitorStats{PassesFailed: 2, LastPassFailed: true}, want: tasks.HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&fakeMonitor{}, &fakeResults{}, &fakeStats{stats: tt.stats}, &fakeMetrics{})

			resp := h.healthReport()
			if resp.Status != tt.want {
				t.Errorf("Status = %q, want %q", resp.Status, tt.want)
			}
			if resp.Host == nil || resp.Host.CPUCount != 4 {
				t.Errorf("Host = %+v", resp.Host)
			}
		})
	}
}

// TestHealthWithoutHostStats tests that host failures do not fail the command
func TestHealthWithoutHostStats(t *testing.T) {
	checker := (&fakeStats{}).checker()
	checker.Host = func(context.Context) (*tasks.HostStats, error) {
		return nil, errors.New("not supported")
	}
	h := NewCommandHandlers(zap.NewNop(), "links.health", &fakeMonitor{}, &fakeResults{}, checker, &fakeMetrics{})

	resp := h.healthReport()
	if resp.Status != tasks.HealthHealthy {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Host != nil {
		t.Errorf("Host = %+v, want nil", resp.Host)
	}
}

// TestMetricsText tests the metrics command
func TestMetricsText(t *testing.T) {
	h := newTestHandlers(&fakeMonitor{}, &fakeResults{}, &fakeStats{}, &fakeMetrics{text: "links_health_passes_total 3\n"})

	resp, ok := h.metricsText().(metricsResponse)
	if !ok {
		t.Fatal("metricsText() did not return a metrics response")
	}
	if resp.Metrics != "links_health_passes_total 3\n" {
		t.Errorf("Metrics = %q", resp.Metrics)
	}

	h.metrics = &fakeMetrics{err: errors.New("gather failed")}
	if _, ok := h.metricsText().(errorResponse); !ok {
		t.Error("metricsText() with failing gatherer did not return an error response")
	}
}

// TestHandleWithRecovery tests that a panicking handler does not escape
func TestHandleWithRecovery(t *testing.T) {
	h := newTestHandlers(&fakeMonitor{}, &fakeResults{}, &fakeStats{}, &fakeMetrics{})

	called := false
	wrapped := h.handleWithRecovery("boom", func(*nats.Msg) {
		called = true
		panic("unexpected nil")
	})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped recovery: %v", r)
		}
	}()

	wrapped(&nats.Msg{Subject: CommandSubject("links.health", "boom")})
	if !called {
		t.Error("handler was not invoked")
	}
}
