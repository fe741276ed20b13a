package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/infrastructure/ml"
	"NewsSummarizer/internal/infrastructure/newsapi"
	"NewsSummarizer/internal/infrastructure/scheduler"
	"NewsSummarizer/internal/infrastructure/storage"
	"NewsSummarizer/internal/infrastructure/telegram"
	"NewsSummarizer/internal/logging"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
	"NewsSummarizer/internal/summarizer"
	"NewsSummarizer/internal/usecase"
	"NewsSummarizer/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLStore
	registry  *prometheus.Registry
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New opens the store, makes sure its schema exists and builds the pipeline.
// The caller owns the returned Application and must Close it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	summ, err := summarizer.New(ml.NewClient(cfg.ML), summarizer.WithTimeout(cfg.Summarizer.Timeout))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     newsapi.NewClient(cfg.NewsAPI, baseLogger.With("component", "newsapi"), m),
		Summarizer: summ,
		Store:      store,
		Notifier:   notifier,
		Metrics:    m,
		Logger:     baseLogger.With("component", "pipeline"),
		APIKey:     cfg.NewsAPI.APIKey,
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		registry:  registry,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, cfg.NewsAPI.Query, cfg.NewsAPI.LookbackDays, baseLogger),
	}, nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context, keyword string, since time.Time) (domain.RunReport, error) {
	return a.pipeline.Run(ctx, keyword, since)
}

// DefaultSince is the lower bound a run triggered now would use.
func (a *Application) DefaultSince() time.Time {
	return usecase.SinceDate(time.Now().In(a.cfg.Scheduler.Location()), a.cfg.NewsAPI.LookbackDays)
}

// Summaries returns every stored summary in insertion order.
func (a *Application) Summaries(ctx context.Context) ([]domain.SummaryRecord, error) {
	return a.store.GetAll(ctx)
}

// Serve runs the scheduler and the web server until ctx is cancelled or the
// server fails.
func (a *Application) Serve(ctx context.Context) error {
	if err := scheduler.Validate(a.cfg.Scheduler.CronExpression); err != nil {
		return err
	}

	srv, err := web.NewServer(a.store, a.registry, a.logger)
	if err != nil {
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if a.cfg.Scheduler.RunOnStart {
		a.scheduler.Trigger(ctx, time.Now().In(a.cfg.Scheduler.Location()))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(a.cfg.Web.Addr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown web server: %w", err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("stop scheduler: %w", err))
	}

	waited := make(chan struct{})
	go func() {
		a.scheduler.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-shutdownCtx.Done():
		runErr = errors.Join(runErr, fmt.Errorf("wait for pipeline run: %w", shutdownCtx.Err()))
	}
	return runErr
}
