package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	promotionvoting "promovote/contexts/workforce/promotion-voting"
	promotionevents "promovote/contexts/workforce/promotion-voting/adapters/events"
	promotionmetrics "promovote/contexts/workforce/promotion-voting/adapters/metrics"
	workerapp "promovote/contexts/workforce/promotion-voting/application/workers"
	"promovote/contexts/workforce/promotion-voting/ports"
	"promovote/internal/platform/config"
	"promovote/internal/platform/httpserver"
	"promovote/internal/platform/messaging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	infra   *infrastructure
	workers *workerSet
	logger  *slog.Logger
}

type WorkerApp struct {
	infra   *infrastructure
	workers *workerSet
	logger  *slog.Logger
}

// workerSet is the background half of the service: deadline sweep, outbox
// relay and the resolution notifier, connected through an in-process bus.
type workerSet struct {
	bus       *messaging.Bus
	redis     *messaging.RedisPublisher
	scheduler workerapp.DeadlineScheduler
	relay     workerapp.OutboxRelay
	notifier  workerapp.ResolutionNotifier
	relayOn   bool
	logger    *slog.Logger
}

func BuildAPI(cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "api")

	registry := newRegistry()
	infra, err := buildInfrastructure(context.Background(), cfg, promotionmetrics.NewPrometheus(registry), logger)
	if err != nil {
		return nil, err
	}

	app := &APIApp{infra: infra, logger: logger}
	// The memory gateway lives inside this process, so nobody else can
	// sweep it or relay its outbox.
	if cfg.DatabaseDriver == config.DriverMemory {
		workers, err := buildWorkerSet(cfg, infra, logger)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		app.workers = workers
	}

	var metricsHandler http.Handler
	if cfg.EnableMetrics {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	app.server = httpserver.New(infra.module, logger, httpserver.Options{
		Addr:           normalizeAddr(cfg.HTTPPort),
		MetricsHandler: metricsHandler,
		EnableSwagger:  cfg.EnableSwagger,
	})
	return app, nil
}

func BuildWorker(cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "worker")

	infra, err := buildInfrastructure(context.Background(), cfg, promotionmetrics.NewPrometheus(newRegistry()), logger)
	if err != nil {
		return nil, err
	}
	workers, err := buildWorkerSet(cfg, infra, logger)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return &WorkerApp{infra: infra, workers: workers, logger: logger}, nil
}

func (a *APIApp) Handler() http.Handler {
	return a.server.Handler()
}

func (a *APIApp) Module() promotionvoting.Module {
	return a.infra.module
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_workers", a.workers != nil,
	)
	if a.workers == nil {
		return a.server.Run(ctx)
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Run(groupCtx)
	})
	group.Go(func() error {
		return a.workers.run(groupCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	var errs []error
	if a.workers != nil {
		errs = append(errs, a.workers.close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.workers.scheduler.Interval.String(),
		"outbox_interval", w.workers.relay.Interval.String(),
	)
	return w.workers.run(ctx)
}

// RunSweepOnce finalizes every overdue proposal once and returns the count.
func (w *WorkerApp) RunSweepOnce(ctx context.Context) (int, error) {
	scheduler := w.workers.scheduler
	scheduler.Disabled = false
	return scheduler.RunOnce(ctx)
}

func (w *WorkerApp) Close() error {
	return errors.Join(w.workers.close(), w.infra.Close())
}

func buildWorkerSet(cfg config.Config, infra *infrastructure, logger *slog.Logger) (*workerSet, error) {
	bus := messaging.NewBus(0, logger)

	var sink ports.NotificationSink = promotionevents.LogNotifier{Logger: logger}
	var redisPublisher *messaging.RedisPublisher
	if cfg.NotificationBackend == config.NotifyRedis {
		publisher, err := messaging.NewRedisPublisher(cfg.RedisAddr, cfg.RedisChannelPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("connect notification backend: %w", err)
		}
		redisPublisher = publisher
		sink = promotionevents.RedisNotifier{Publisher: publisher, Logger: logger}
	}

	return &workerSet{
		bus:   bus,
		redis: redisPublisher,
		scheduler: workerapp.DeadlineScheduler{
			Proposals: infra.proposals,
			Lifecycle: infra.module.Lifecycle,
			Clock:     infra.clock,
			Metrics:   infra.metrics,
			BatchSize: cfg.SweepBatchSize,
			Interval:  cfg.SweepInterval,
			Disabled:  !cfg.EnableDeadlineSweep,
			Logger:    logger,
		},
		relay: workerapp.OutboxRelay{
			Outbox:    infra.outbox,
			Publisher: bus,
			Clock:     infra.clock,
			BatchSize: cfg.OutboxBatchSize,
			Interval:  cfg.OutboxInterval,
			Logger:    logger,
		},
		notifier: workerapp.ResolutionNotifier{
			Subscriber: bus,
			Dedup:      infra.dedup,
			Sink:       sink,
			Clock:      infra.clock,
			Disabled:   !cfg.EnableResolutionNotifier,
			Logger:     logger,
		},
		relayOn: cfg.EnableOutboxRelay,
		logger:  logger,
	}, nil
}

func (w *workerSet) run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if err := w.notifier.Start(groupCtx); err != nil {
		return err
	}
	group.Go(func() error {
		return w.scheduler.Run(groupCtx)
	})
	if w.relayOn {
		group.Go(func() error {
			return w.relay.Run(groupCtx)
		})
	} else {
		w.logger.Info("outbox relay disabled by feature flag",
			"event", "bootstrap_outbox_relay_disabled",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	err := group.Wait()
	w.bus.Wait()
	return err
}

func (w *workerSet) close() error {
	w.bus.Close()
	if w.redis != nil {
		return w.redis.Close()
	}
	return nil
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
