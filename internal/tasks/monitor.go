package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/status"
)

// RunFunc is the body of a monitored task
type RunFunc func(ctx context.Context) error

// TaskInfo is the execution snapshot shown on the console status panel
type TaskInfo struct {
	TaskStatus              status.TaskStatus `json:"task_status"`
	TaskStatusLabel         string            `json:"task_status_label"`
	LastScheduledExecution  string            `json:"last_scheduled_execution,omitempty"`
	LastActualExecution     string            `json:"last_actual_execution,omitempty"`
	LastCompletionExecution string            `json:"last_completion_execution,omitempty"`
	LastCompletionTime      string            `json:"last_completion_time,omitempty"`
	NextScheduledExecution  string            `json:"next_scheduled_execution,omitempty"`
	RemainingTime           string            `json:"remaining_time,omitempty"`
	LinkMonitorProgress     string            `json:"link_monitor_progress,omitempty"`
	Display                 status.Visibility `json:"display"`
}

// UncreatedInfo is reported while no task has been scheduled
func UncreatedInfo() TaskInfo {
	return TaskInfo{
		TaskStatus:      status.Uncreated,
		TaskStatusLabel: status.Uncreated.Label(),
		Display:         status.Display(status.Uncreated),
	}
}

// MonitorableTask wraps a RunFunc with status tracking and execution timing.
// The scheduler decides when Execute runs; the task only records what happened.
type MonitorableTask struct {
	cron   string
	loc    *time.Location
	run    RunFunc
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// serialises executions so timestamps are never interleaved
	execMu sync.Mutex

	status         atomic.Value // status.TaskStatus
	lastScheduled  atomic.Pointer[time.Time]
	lastActual     atomic.Pointer[time.Time]
	lastCompletion atomic.Pointer[time.Time]
	nextScheduled  atomic.Pointer[time.Time]
}

// NewMonitorableTask creates a task for cronExpr evaluated in loc
func NewMonitorableTask(ctx context.Context, cronExpr string, loc *time.Location, run RunFunc, logger *zap.Logger) (*MonitorableTask, error) {
	if !ValidCron(cronExpr) {
		return nil, fmt.Errorf("invalid cron expression %q", cronExpr)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &MonitorableTask{
		cron:   cronExpr,
		loc:    loc,
		run:    run,
		logger: logger,
		now:    time.Now,
		ctx:    taskCtx,
		cancel: cancel,
	}
	t.status.Store(status.Uncreated)
	return t, nil
}

// Cron returns the expression the task is planned with
func (t *MonitorableTask) Cron() string {
	return t.cron
}

// Status returns the current lifecycle state
func (t *MonitorableTask) Status() status.TaskStatus {
	return t.status.Load().(status.TaskStatus)
}

// Start marks the task CREATED and plans its first execution
func (t *MonitorableTask) Start() {
	t.status.Store(status.Created)

	next := t.nextAfter(t.now())
	t.lastScheduled.Store(next)
	t.nextScheduled.Store(next)
}

// Stop cancels any in-flight execution and marks the task STOPPED.
// Later executions are skipped.
func (t *MonitorableTask) Stop() {
	t.cancel()
	t.status.Store(status.Stopped)
}

// Execute runs the task once: RUNNING, then COMPLETED or FAILED. The next
// planned time is always recomputed. A stopped task does nothing.
func (t *MonitorableTask) Execute() {
	if t.ctx.Err() != nil {
		return
	}

	t.execMu.Lock()
	defer t.execMu.Unlock()

	t.logger.Info("Link health pass started", zap.String("cron", t.cron))

	t.lastScheduled.Store(t.nextScheduled.Load())
	t.lastCompletion.Store(nil)
	t.nextScheduled.Store(nil)

	start := t.now()
	t.lastActual.Store(&start)
	t.setStatus(status.Running)

	err := t.runWithRecovery()

	if err != nil {
		t.setStatus(status.Failed)
		t.logger.Error("Link health pass failed", zap.Error(err))
	} else {
		end := t.now()
		t.lastCompletion.Store(&end)
		t.setStatus(status.Completed)
		t.logger.Info("Link health pass finished",
			zap.Duration("duration", end.Sub(start)))
	}

	t.nextScheduled.Store(t.nextAfter(t.now()))
}

// setStatus moves the task to s unless it has been stopped
func (t *MonitorableTask) setStatus(s status.TaskStatus) {
	for {
		cur := t.status.Load()
		if cur == status.Stopped {
			return
		}
		if t.status.CompareAndSwap(cur, s) {
			return
		}
	}
}

func (t *MonitorableTask) runWithRecovery() (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Panic in link health pass",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(t.ctx)
}

func (t *MonitorableTask) nextAfter(from time.Time) *time.Time {
	next, err := Next(t.cron, from, t.loc)
	if err != nil {
		return nil
	}
	return &next
}

// Info returns the current execution snapshot with progress attached
func (t *MonitorableTask) Info(progress string) TaskInfo {
	s := t.Status()
	info := TaskInfo{
		TaskStatus:              s,
		TaskStatusLabel:         s.Label(),
		LastScheduledExecution:  t.format(t.lastScheduled.Load()),
		LastActualExecution:     t.format(t.lastActual.Load()),
		LastCompletionExecution: t.format(t.lastCompletion.Load()),
		NextScheduledExecution:  t.format(t.nextScheduled.Load()),
		RemainingTime:           t.remaining(s),
		LinkMonitorProgress:     progress,
		Display:                 status.Display(s),
	}

	actual, done := t.lastActual.Load(), t.lastCompletion.Load()
	if actual != nil && done != nil {
		info.LastCompletionTime = FormatDuration(done.Sub(*actual))
	}

	return info
}

// remaining is the time to the planned run while CREATED, otherwise to the
// next planned run. Empty while a run is in flight.
func (t *MonitorableTask) remaining(s status.TaskStatus) string {
	now := t.now()
	if s == status.Created {
		if planned := t.lastScheduled.Load(); planned != nil {
			return FormatDuration(planned.Sub(now))
		}
	}
	next := t.nextScheduled.Load()
	if next == nil {
		return ""
	}
	return FormatDuration(next.Sub(now))
}

func (t *MonitorableTask) format(p *time.Time) string {
	if p == nil {
		return ""
	}
	return FormatTime(*p, t.loc)
}
