package tasks

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stone-age-io/links-health-monitor/internal/checker"
	"github.com/stone-age-io/links-health-monitor/internal/config"
	"github.com/stone-age-io/links-health-monitor/internal/links"
	"github.com/stone-age-io/links-health-monitor/internal/utils"
)

// ResultStore persists finished passes
type ResultStore interface {
	Create(ctx context.Context, r *Result) error
}

// ResultPublisher forwards finished passes to subscribers
type ResultPublisher interface {
	PublishResult(r *Result) error
}

// Recorder receives pass and per-link observations
type Recorder interface {
	ObservePass(d time.Duration, err error)
	ObserveLink(accessible, containsOurLink bool)
}

// Executor runs link health passes
type Executor struct {
	logger    *zap.Logger
	checker   *checker.Checker
	source    links.Source
	store     ResultStore
	publisher ResultPublisher // nil when NATS is disabled
	recorder  Recorder        // nil disables metrics
	now       func() time.Time
	stats     *ExecutorStats
	progress  progress

	sourceMu sync.RWMutex
}

// ExecutorStats tracks executor statistics for self-monitoring
type ExecutorStats struct {
	mu            sync.RWMutex
	startTime     time.Time
	passesRun     int64
	passesFailed  int64
	linksChecked  int64
	lastPass      time.Time
	lastFailed    bool
	lastError     string
	lastErrorTime time.Time
}

// progress counts links of the pass in flight
type progress struct {
	all         atomic.Int64
	notRequired atomic.Int64
	monitored   atomic.Int64
}

// MonitorStats represents monitor self-monitoring metrics
type MonitorStats struct {
	MemoryUsageMB  float64 `json:"memory_usage_mb"`
	Goroutines     int     `json:"goroutines"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	PassesRun      int64   `json:"passes_run"`
	PassesFailed   int64   `json:"passes_failed"`
	LinksChecked   int64   `json:"links_checked"`
	LastPass       string  `json:"last_pass,omitempty"`
	LastPassFailed bool    `json:"last_pass_failed"`
	LastError      string  `json:"last_error,omitempty"`
	LastErrorTime  string  `json:"last_error_time,omitempty"`
}

// ExecutorOption customises an Executor
type ExecutorOption func(*Executor)

// WithPublisher publishes every persisted result
func WithPublisher(p ResultPublisher) ExecutorOption {
	return func(e *Executor) { e.publisher = p }
}

// WithRecorder reports observations to r
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) { e.recorder = r }
}

// NewExecutor creates a new pass executor
func NewExecutor(logger *zap.Logger, c *checker.Checker, source links.Source, store ResultStore, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		logger:  logger,
		checker: c,
		source:  source,
		store:   store,
		now:     time.Now,
		stats:   &ExecutorStats{startTime: time.Now()},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSource swaps the link inventory used by later passes
func (e *Executor) SetSource(source links.Source) {
	e.sourceMu.Lock()
	defer e.sourceMu.Unlock()
	e.source = source
}

func (e *Executor) currentSource() links.Source {
	e.sourceMu.RLock()
	defer e.sourceMu.RUnlock()
	return e.source
}

// Progress renders the counters of the latest pass
func (e *Executor) Progress() string {
	return links.Progress(
		int(e.progress.all.Load()),
		int(e.progress.notRequired.Load()),
		int(e.progress.monitored.Load()),
	)
}

// Run performs one health pass with cfg and persists the result
func (e *Executor) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := e.now()
	result, err := e.run(ctx, cfg)
	elapsed := e.now().Sub(start)

	if e.recorder != nil {
		e.recorder.ObservePass(elapsed, err)
	}
	if err != nil {
		e.RecordPassError(err)
		return nil, err
	}
	e.RecordPassSuccess(len(result.Spec.Records))
	return result, nil
}

func (e *Executor) run(ctx context.Context, cfg *config.Config) (*Result, error) {
	loc, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	now := e.now()
	result := NewResult(now)
	result.Spec = ResultSpec{
		CustomizedCronEnable:    cfg.Monitor.CustomizedCronEnable,
		CustomizedCron:          cfg.Monitor.CustomizedCron,
		CustomizedCronAvailable: ValidCron(cfg.Monitor.CustomizedCron),
		PracticalCron:           EffectiveCron(cfg.Monitor.CustomizedCronEnable, cfg.Monitor.CustomizedCron),
		ExternalURL:             cfg.Site.ExternalURL,
		MonitorDate:             FormatTime(now, loc),
		Records:                 []LinkHealthCheckRecord{},
	}

	e.progress.all.Store(0)
	e.progress.notRequired.Store(0)
	e.progress.monitored.Store(0)

	ours := links.NormalizeURL(cfg.Site.ExternalURL)
	if ours == "" {
		e.logger.Warn("External URL not set, saving result without link records")
	} else {
		records, err := e.checkAll(ctx, cfg, ours, loc)
		if err != nil {
			return nil, err
		}
		result.Spec.Records = records
	}

	if err := e.store.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishResult(result); err != nil {
			e.logger.Warn("Failed to publish result",
				zap.String("result", result.Metadata.Name),
				zap.Error(err))
		}
	}

	e.logger.Info("Link health result saved",
		zap.String("result", result.Metadata.Name),
		zap.Int("records", len(result.Spec.Records)))

	return result, nil
}

// checkAll checks every monitored link concurrently and returns the records
// in inventory order
func (e *Executor) checkAll(ctx context.Context, cfg *config.Config, ours string, loc *time.Location) ([]LinkHealthCheckRecord, error) {
	source := e.currentSource()
	all, err := source.Links(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	skip := make(map[string]bool, len(cfg.Monitor.NotRequiredMonitorLinks))
	for _, name := range cfg.Monitor.NotRequiredMonitorLinks {
		skip[name] = true
	}

	monitored := make([]links.Link, 0, len(all))
	for _, l := range all {
		if skip[l.Name] && !l.Metadata().EnableFriendLinkHealthMonitor {
			continue
		}
		monitored = append(monitored, l)
	}

	e.progress.all.Store(int64(len(all)))
	e.progress.notRequired.Store(int64(len(all) - len(monitored)))

	e.logger.Info("Checking links",
		zap.Int("total", len(all)),
		zap.Int("monitored", len(monitored)),
		zap.Strings("not_required", cfg.Monitor.NotRequiredMonitorLinks))

	routes := links.AllFriendLinkRoutes(cfg.Monitor.FriendLinkRoutes)
	records := make([]*LinkHealthCheckRecord, len(monitored))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Monitor.Concurrency)

	for i, l := range monitored {
		g.Go(func() error {
			records[i] = e.checkLink(gctx, source, l, routes, ours, loc)
			e.progress.monitored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pass cancelled: %w", err)
	}

	out := make([]LinkHealthCheckRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// checkLink checks one link. Nil means the link has no usable URL.
func (e *Executor) checkLink(ctx context.Context, source links.Source, l links.Link, routes []string, ours string, loc *time.Location) *LinkHealthCheckRecord {
	url := links.NormalizeURL(l.URL)
	if url == "" {
		return nil
	}

	rec := &LinkHealthCheckRecord{
		LinkName:             l.Name,
		LinkURL:              url,
		LinkDisplayName:      l.DisplayName,
		LinkLogo:             l.Logo,
		LinkGroup:            l.GroupName,
		LinkGroupDisplayName: source.GroupDisplayName(ctx, l.GroupName),
	}

	accessible, elapsed := e.checker.Accessible(ctx, url)
	rec.WebsiteAccessible = accessible
	rec.ResponseTimeSeconds = utils.Seconds(elapsed)

	if l.Logo != "" {
		rec.LogoAccessible, _ = e.checker.Accessible(ctx, l.Logo)
	}

	if accessible {
		if title, err := e.checker.Title(ctx, url); err == nil {
			rec.LatestDisplayName = title
			rec.DisplayNameChanged = checker.DisplayNameChanged(title, l.DisplayName)
		}

		explicit := l.Metadata().FriendLinkURL
		if page, ok := e.checker.FriendLinkPage(ctx, url, explicit, routes); ok {
			rec.FriendLinkRoute = page
			rec.ContainsOurLink = e.checker.ContainsLink(ctx, page, ours)
		}

		if article, err := e.checker.LatestArticle(ctx, url); err == nil {
			rec.LatestArticleTitle = article.Title
			rec.LatestArticleURL = article.URL
			if article.Published != nil {
				rec.LatestArticleTime = FormatTime(*article.Published, loc)
			}
		} else {
			e.logger.Debug("No latest article", zap.String("link", l.Name), zap.Error(err))
		}
	}

	if e.recorder != nil {
		e.recorder.ObserveLink(rec.WebsiteAccessible, rec.ContainsOurLink)
	}

	return rec
}

// GetStats returns current monitor performance metrics
func (e *Executor) GetStats() *MonitorStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()

	stats := &MonitorStats{
		MemoryUsageMB:  utils.MB(mem.Sys),
		Goroutines:     runtime.NumGoroutine(),
		UptimeSeconds:  int64(time.Since(e.stats.startTime).Seconds()),
		PassesRun:      e.stats.passesRun,
		PassesFailed:   e.stats.passesFailed,
		LinksChecked:   e.stats.linksChecked,
		LastPassFailed: e.stats.lastFailed,
	}

	if !e.stats.lastPass.IsZero() {
		stats.LastPass = e.stats.lastPass.Format(time.RFC3339)
	}
	if !e.stats.lastErrorTime.IsZero() {
		stats.LastError = e.stats.lastError
		stats.LastErrorTime = e.stats.lastErrorTime.Format(time.RFC3339)
	}

	return stats
}

// RecordPassSuccess records a persisted pass
func (e *Executor) RecordPassSuccess(records int) {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.stats.passesRun++
	e.stats.linksChecked += int64(records)
	e.stats.lastPass = time.Now()
	e.stats.lastFailed = false
}

// RecordPassError increments the failure counter and stores the last error
func (e *Executor) RecordPassError(err error) {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()

	e.stats.passesFailed++
	e.stats.passesRun++ // Still counts as run
	e.stats.lastFailed = true
	e.stats.lastError = err.Error()
	e.stats.lastErrorTime = time.Now()
}
