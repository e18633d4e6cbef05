package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	promotionvoting "promovote/contexts/workforce/promotion-voting"
	"promovote/contexts/workforce/promotion-voting/adapters/directory"
	"promovote/contexts/workforce/promotion-voting/adapters/memory"
	postgresadapter "promovote/contexts/workforce/promotion-voting/adapters/postgres"
	"promovote/contexts/workforce/promotion-voting/adapters/retrying"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
	"promovote/internal/platform/config"
	"promovote/internal/platform/db"
)

// infrastructure holds the gateway chosen by databaseDriver and the module
// built on top of it.
type infrastructure struct {
	database  *db.Database
	module    promotionvoting.Module
	proposals ports.ProposalRepository
	outbox    ports.OutboxRepository
	dedup     ports.EventDedupStore
	clock     ports.Clock
	metrics   ports.Metrics
}

func buildInfrastructure(
	ctx context.Context,
	cfg config.Config,
	metrics ports.Metrics,
	logger *slog.Logger,
) (*infrastructure, error) {
	hierarchy := entities.MustPositionHierarchy(entities.DefaultPositions)
	if len(cfg.Positions) > 0 {
		configured, err := entities.NewPositionHierarchy(cfg.Positions)
		if err != nil {
			return nil, fmt.Errorf("configure positions: %w", err)
		}
		hierarchy = configured
	}

	var employees []entities.Employee
	if strings.TrimSpace(cfg.RosterFile) != "" {
		loaded, err := directory.LoadRosterFile(cfg.RosterFile)
		if err != nil {
			return nil, err
		}
		employees = loaded
	}

	infra := &infrastructure{metrics: metrics}
	var (
		gateway     ports.ProposalRepository
		idempotency ports.IdempotencyStore
		people      ports.Directory
		idGen       ports.IDGenerator
	)

	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		store := memory.NewStore(nil)
		gateway, idempotency = store, store
		infra.outbox, infra.dedup, infra.clock = store, store, store
		idGen = store
		people = directory.NewRoster(employees)
	case config.DriverPostgres, config.DriverSQLite:
		database, err := openDatabase(cfg)
		if err != nil {
			return nil, err
		}
		infra.database = database
		if err := postgresadapter.Migrate(ctx, database.DB); err != nil {
			_ = database.Close()
			return nil, err
		}
		repo := postgresadapter.NewRepository(database.DB, logger)
		if len(employees) > 0 {
			if err := repo.UpsertEmployees(ctx, employees); err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("seed roster: %w", err)
			}
		}
		gateway, idempotency = repo, repo
		infra.outbox, infra.dedup = repo, repo
		infra.clock = postgresadapter.SystemClock{}
		idGen = postgresadapter.UUIDGenerator{}
		people = repo
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	cached, err := directory.NewCachedDirectory(people, cfg.DirectoryCacheSize, cfg.DirectoryCacheTTL)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	infra.proposals = retrying.NewRepository(gateway, retrying.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
	}, logger)

	infra.module = promotionvoting.NewModule(promotionvoting.Dependencies{
		Proposals:      infra.proposals,
		Idempotency:    idempotency,
		Directory:      cached,
		Clock:          infra.clock,
		IDGen:          idGen,
		Metrics:        metrics,
		Hierarchy:      hierarchy,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	logger.Info("promotion voting infrastructure ready",
		"event", "bootstrap_infrastructure_ready",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"database_driver", cfg.DatabaseDriver,
		"roster_size", len(employees),
		"positions", len(hierarchy.Positions()),
	)
	return infra, nil
}

func openDatabase(cfg config.Config) (*db.Database, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return db.OpenSQLite(cfg.SQLitePath)
	}
	return db.OpenPostgres(cfg.PostgresDSN)
}

func (i *infrastructure) Close() error {
	if i == nil || i.database == nil {
		return nil
	}
	return i.database.Close()
}
