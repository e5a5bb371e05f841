package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/config"
	"github.com/stone-age-io/links-health-monitor/internal/links"
	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

// JobName identifies the monitor job in the scheduler
const JobName = "links-health-monitor"

// ErrNoJob is returned when no monitor job has been scheduled
var ErrNoJob = errors.New("monitor job not scheduled")

// Scheduler owns the single monitor job and replaces it on config change
type Scheduler struct {
	ctx      context.Context
	logger   *zap.Logger
	executor *tasks.Executor
	cron     gocron.Scheduler

	mu   sync.RWMutex
	cfg  *config.Config
	job  gocron.Job
	task *tasks.MonitorableTask
}

// New creates a scheduler. Jobs run with ctx as their parent context.
func New(ctx context.Context, logger *zap.Logger, executor *tasks.Executor) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		ctx:      ctx,
		logger:   logger,
		executor: executor,
		cron:     s,
	}, nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Apply replaces the monitor job with one built from cfg. The previous task
// is stopped, cancelling any pass it has in flight.
func (s *Scheduler) Apply(cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	source, err := links.NewStaticSource(cfg.Links, cfg.LinkGroups)
	if err != nil {
		return fmt.Errorf("failed to build link source: %w", err)
	}

	expr := tasks.EffectiveCron(cfg.Monitor.CustomizedCronEnable, cfg.Monitor.CustomizedCron)
	if cfg.Monitor.CustomizedCronEnable && expr != cfg.Monitor.CustomizedCron {
		s.logger.Warn("Customized cron is invalid, using default",
			zap.String("customized_cron", cfg.Monitor.CustomizedCron),
			zap.String("default_cron", config.DefaultCron))
	}

	task, err := tasks.NewMonitorableTask(s.ctx, expr, loc, func(ctx context.Context) error {
		_, err := s.executor.Run(ctx, cfg)
		return err
	}, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.cron.NewJob(
		gocron.CronJob(fmt.Sprintf("CRON_TZ=%s %s", loc.String(), expr), true),
		gocron.NewTask(task.Execute),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		task.Stop()
		return fmt.Errorf("failed to schedule monitor job: %w", err)
	}

	// the previous job keeps running until its replacement is registered
	if s.job != nil {
		if err := s.cron.RemoveJob(s.job.ID()); err != nil {
			s.logger.Warn("Failed to remove previous job", zap.Error(err))
		}
		s.task.Stop()
	}

	s.executor.SetSource(source)
	task.Start()
	s.cfg, s.job, s.task = cfg, job, task

	s.logger.Info("Monitor job scheduled",
		zap.String("cron", expr),
		zap.String("timezone", loc.String()),
		zap.Int("links", len(cfg.Links)))

	if cfg.Monitor.RunOnStart {
		if err := job.RunNow(); err != nil {
			s.logger.Warn("Failed to trigger initial run", zap.Error(err))
		}
	}

	return nil
}

// Info returns the status snapshot of the current task
func (s *Scheduler) Info() tasks.TaskInfo {
	s.mu.RLock()
	task := s.task
	s.mu.RUnlock()

	if task == nil {
		return tasks.UncreatedInfo()
	}
	return task.Info(s.executor.Progress())
}

// Config returns the configuration the current job was built from
func (s *Scheduler) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// NextRun returns the scheduler's next activation of the monitor job
func (s *Scheduler) NextRun() (time.Time, error) {
	s.mu.RLock()
	job := s.job
	s.mu.RUnlock()

	if job == nil {
		return time.Time{}, ErrNoJob
	}
	return job.NextRun()
}

// RunNow triggers the monitor job outside its schedule
func (s *Scheduler) RunNow() error {
	s.mu.RLock()
	job := s.job
	s.mu.RUnlock()

	if job == nil {
		return ErrNoJob
	}
	return job.RunNow()
}

// Shutdown stops the current task and the scheduler
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	if s.task != nil {
		s.task.Stop()
	}
	s.mu.Unlock()

	return s.cron.Shutdown()
}
