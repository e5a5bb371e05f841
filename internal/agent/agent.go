package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/stone-age-io/links-health-monitor/internal/api"
	"github.com/stone-age-io/links-health-monitor/internal/bootstrap"
	"github.com/stone-age-io/links-health-monitor/internal/checker"
	"github.com/stone-age-io/links-health-monitor/internal/config"
	"github.com/stone-age-io/links-health-monitor/internal/metrics"
	natsclient "github.com/stone-age-io/links-health-monitor/internal/nats"
	"github.com/stone-age-io/links-health-monitor/internal/plugin"
	"github.com/stone-age-io/links-health-monitor/internal/scheduler"
	"github.com/stone-age-io/links-health-monitor/internal/store"
	"github.com/stone-age-io/links-health-monitor/internal/tasks"
)

const pluginLoadTimeout = 5 * time.Second

// Agent wires the monitor together and owns its lifecycle
type Agent struct {
	configPath string
	mu         sync.Mutex
	config     *config.Config
	logger     *zap.Logger
	version    string

	store     *store.FileStore
	metrics   *metrics.Metrics
	executor  *tasks.Executor
	scheduler *scheduler.Scheduler
	nats      *natsclient.Client
	server    *http.Server

	registry *plugin.Registry

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// New creates a new monitor instance
func New(configPath string, version string) (*Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	logger.Info("Starting links-health-monitor",
		zap.String("version", version),
		zap.String("external_url", cfg.Site.ExternalURL),
		zap.Int("links", len(cfg.Links)))

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		configPath: configPath,
		config:     cfg,
		logger:     logger,
		version:    version,
		ctx:        ctx,
		cancel:     cancel,
	}

	if err := a.build(); err != nil {
		cancel()
		if a.nats != nil {
			a.nats.Drain(cfg.NATS.DrainTimeout)
		}
		return nil, err
	}

	return a, nil
}

// build creates every component from a.config
func (a *Agent) build() error {
	cfg := a.config

	resultStore, err := store.Open(cfg.Store.Path, cfg.Store.Retention)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	a.store = resultStore
	a.metrics = metrics.New()

	opts := []tasks.ExecutorOption{tasks.WithRecorder(a.metrics)}

	if cfg.NATS.Enabled {
		if cfg.NATS.Auth.Type == "pocketbase" {
			if err := bootstrap.FetchCredentials(a.ctx, &cfg.NATS.Auth, a.logger); err != nil {
				return fmt.Errorf("failed to bootstrap credentials: %w", err)
			}
			// the .creds file now exists
			cfg.NATS.Auth.Type = "creds"
		}

		a.nats, err = natsclient.NewClient(&cfg.NATS, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		opts = append(opts, tasks.WithPublisher(a.nats))
	}

	a.executor = tasks.NewExecutor(a.logger,
		checker.New(cfg.Checker.Timeout, cfg.Checker.UserAgent),
		nil, a.store, opts...)

	a.scheduler, err = scheduler.New(a.ctx, a.logger, a.executor)
	if err != nil {
		return err
	}
	if err := a.scheduler.Apply(cfg); err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}

	a.registry = plugin.NewRegistry(pluginLoadTimeout)
	a.registry.OnLoadError = func(err error) {
		a.logger.Warn("Console component failed to load", zap.Error(err))
	}
	if err := a.definePlugin(cfg); err != nil {
		return err
	}

	health := tasks.NewHealthChecker(a.executor.GetStats, a.metrics.Summary)

	if a.nats != nil {
		handlers := natsclient.NewCommandHandlers(a.logger, cfg.NATS.SubjectPrefix,
			a.scheduler, a.store, health, a.metrics)
		a.logger.Info("Subscribing to commands...")
		if err := handlers.SubscribeAll(a.nats); err != nil {
			return fmt.Errorf("failed to subscribe to commands: %w", err)
		}
	}

	if cfg.HTTP.Enabled {
		h := api.NewHandler(a.scheduler, a.store, health, a.registry, a.logger)
		a.server = &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: api.NewRouter(h, a.metrics.Handler(), a.logger),
		}
	}

	return nil
}

// definePlugin registers the console descriptor of the configured revision
func (a *Agent) definePlugin(cfg *config.Config) error {
	d := plugin.LinksHealthMonitor(plugin.Revision(cfg.Plugin.Revision))
	if err := plugin.Define(a.registry, d); err != nil {
		return err
	}
	a.logger.Info("Console plugin defined",
		zap.String("revision", cfg.Plugin.Revision),
		zap.Strings("extension_points", d.ExtensionPointIDs()))
	return nil
}

// Run starts the monitor and blocks until a signal arrives or Stop is called
func (a *Agent) Run() error {
	a.scheduler.Start()

	if a.server != nil {
		go func() {
			a.logger.Info("HTTP API listening", zap.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server failed", zap.Error(err))
				a.cancel()
			}
		}()
	}

	if err := config.Watch(a.configPath, a.reload, func(err error) {
		a.logger.Error("Rejected config change", zap.Error(err))
	}); err != nil {
		a.logger.Warn("Config hot reload disabled", zap.Error(err))
	}

	a.logger.Info("Monitor running", zap.String("version", a.version))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		a.logger.Info("Received shutdown signal")
	case <-a.ctx.Done():
		a.logger.Info("Context cancelled")
	}

	return a.Shutdown()
}

// reload reschedules the monitor from a changed config file.
// The file watcher outlives Shutdown, so changes after it are ignored.
func (a *Agent) reload(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		a.logger.Debug("Ignoring config change after shutdown")
		return
	}

	a.logger.Info("Config changed, rescheduling monitor")

	prev := a.scheduler.Config()
	if err := a.scheduler.Apply(cfg); err != nil {
		a.logger.Error("Failed to apply config change", zap.Error(err))
		return
	}
	if cfg.Plugin.Revision != prev.Plugin.Revision {
		if err := a.definePlugin(cfg); err != nil {
			a.logger.Error("Failed to redefine console plugin", zap.Error(err))
		}
	}
	if cfg.HTTP != prev.HTTP || cfg.Store != prev.Store || cfg.Logging != prev.Logging {
		a.logger.Warn("HTTP, store and logging changes take effect after restart")
	}
}

// Stop cancels Run
func (a *Agent) Stop() {
	a.cancel()
}

// Shutdown gracefully shuts down the monitor
func (a *Agent) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("Shutting down monitor gracefully")

		// waits out an in-flight reload
		a.mu.Lock()
		a.cancel()
		cfg := a.scheduler.Config()
		a.mu.Unlock()

		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("Error shutting down HTTP server", zap.Error(err))
			}
			cancel()
		}

		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error("Error shutting down scheduler", zap.Error(err))
		}

		if a.nats != nil {
			if err := a.nats.Drain(cfg.NATS.DrainTimeout); err != nil {
				a.logger.Error("Error draining NATS", zap.Error(err))
			}
		}

		a.logger.Info("Monitor shutdown complete")
		a.logger.Sync()
	})
	return nil
}

// initLogger creates and configures the logger with log rotation
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     28, // days
		Compress:   true,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(fileWriter), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
