package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/content-filter/internal/adapters/http"
	"github.com/kirillkom/content-filter/internal/config"
	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/core/ports"
	"github.com/kirillkom/content-filter/internal/core/usecase"
	buffermemory "github.com/kirillkom/content-filter/internal/infrastructure/buffer/memory"
	"github.com/kirillkom/content-filter/internal/infrastructure/eventlog"
	"github.com/kirillkom/content-filter/internal/infrastructure/filter"
	"github.com/kirillkom/content-filter/internal/infrastructure/filter/similarity"
	queuememory "github.com/kirillkom/content-filter/internal/infrastructure/queue/memory"
	"github.com/kirillkom/content-filter/internal/infrastructure/queue/nats"
	repomemory "github.com/kirillkom/content-filter/internal/infrastructure/repository/memory"
	"github.com/kirillkom/content-filter/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
	"github.com/kirillkom/content-filter/internal/observability/metrics"
)

const (
	ServiceAPI    = "content-filter-api"
	ServiceFilter = "content-filter-cli"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type App struct {
	Config config.Config

	Registry *prometheus.Registry
	Engine   *filter.Engine
	Buffer   *buffermemory.Buffer
	Queue    *queuememory.Queue
	Store    ports.ResultStore
	Events   *eventlog.Log

	UploadUC *usecase.UploadUseCase
	ResultUC *usecase.ResultUseCase
	Workers  []*usecase.Worker

	httpMetrics *metrics.HTTPServerMetrics
	forward     eventlog.Handler
	closeFns    []func()
}

// New wires the whole pipeline. Nothing runs until Run is called.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		Config:   cfg,
		Registry: metrics.NewRegistry(),
	}

	engine, err := NewFilterEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Engine = engine

	executor := resilience.NewExecutor(ResilienceConfig(cfg))

	store, err := app.openResultStore(ctx, cfg, executor)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	app.forward = eventlog.LogHandler(logger)
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.forward = publisher.PublishTextFiltered
		app.closeFns = append(app.closeFns, publisher.Close)
	}

	app.Buffer = buffermemory.New(int64(cfg.UploadQuotaBytes))
	app.Queue = queuememory.New()
	app.Events = eventlog.New(cfg.EventLogCapacity)
	app.closeFns = append(app.closeFns, app.Queue.Close)

	pipeline := metrics.NewPipelineMetrics(ServiceAPI, app.Registry, metrics.PipelineSources{
		QueueDepth:     app.Queue.Len,
		BufferSessions: app.Buffer.Pending,
		EventLogDepth:  app.Events.Len,
	})
	workerMetrics := metrics.NewWorkerMetrics(ServiceAPI, app.Registry)
	app.httpMetrics = metrics.NewHTTPServerMetrics(ServiceAPI, app.Registry)

	app.UploadUC = usecase.NewUploadUseCase(app.Buffer, app.Store, app.Queue, pipeline)
	app.ResultUC = usecase.NewResultUseCase(app.Store)

	workers := max(1, cfg.WorkerConcurrency)
	for i := range workers {
		app.Workers = append(app.Workers, usecase.NewWorker(app.Queue, app.Engine, app.Store, cfg.FilterThreshold, usecase.WorkerOptions{
			Name:     fmt.Sprintf("filter-%d", i),
			Events:   app.Events,
			Observer: workerMetrics,
			Logger:   logger,
		}))
	}

	stats := engine.Stats()
	logger.Info("app_initialized",
		"result_store", cfg.ResultStore,
		"metric", cfg.FilterMetric,
		"threshold", cfg.FilterThreshold,
		"banned_tokens", stats.Tokens,
		"banned_phrases", stats.Phrases,
		"workers", workers,
		"upload_quota_bytes", app.Buffer.Quota(),
		"events_to_nats", strings.TrimSpace(cfg.NATSURL) != "",
	)
	return app, nil
}

// NewFilterEngine builds the engine from FILTER_* settings.
func NewFilterEngine(cfg config.Config, logger *slog.Logger) (*filter.Engine, error) {
	metric, err := similarity.Parse(cfg.FilterMetric)
	if err != nil {
		return nil, fmt.Errorf("resolve similarity metric: %w", err)
	}

	terms := filter.DefaultTerms
	if path := strings.TrimSpace(cfg.FilterTermsFile); path != "" {
		terms, err = filter.LoadTerms(path)
		if err != nil {
			return nil, fmt.Errorf("load banned terms: %w", err)
		}
	}

	engine, err := filter.NewWithOptions(terms, metric, filter.Options{
		Parallelism: cfg.FilterParallelism,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build filter engine: %w", err)
	}
	return engine, nil
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     cfg.RetryInitialBackoff,
		RetryMaxBackoff:         cfg.RetryMaxBackoff,
		RetryMultiplier:         cfg.RetryMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(0, cfg.BreakerMinRequests)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(0, cfg.BreakerHalfOpenMaxCalls)),
	}
}

func (a *App) openResultStore(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.ResultStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ResultStore)) {
	case "", StoreMemory:
		return repomemory.NewResultStore(), nil
	case StorePostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { closeDB(db) })

		repo := postgres.NewResultRepository(db, executor)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "open result store", fmt.Errorf("unknown RESULT_STORE %q", cfg.ResultStore))
	}
}

// Router builds the HTTP handler serving the upload and result endpoints.
func (a *App) Router() http.Handler {
	return httpadapter.NewRouter(a.Config, a.UploadUC, a.ResultUC,
		httpadapter.WithMetrics(a.httpMetrics, metrics.Handler(a.Registry)),
	).Handler()
}

// Run starts the workers and the event forwarder and blocks until ctx is
// done. Events emitted before shutdown are still forwarded.
func (a *App) Run(ctx context.Context) error {
	drained := make(chan error, 1)
	go func() {
		drained <- a.Events.Drain(context.WithoutCancel(ctx), a.forward)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range a.Workers {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	err := g.Wait()

	a.Events.Close()
	return errors.Join(err, <-drained)
}

// Close releases external connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("db_close_failed", "error", err)
	}
}
