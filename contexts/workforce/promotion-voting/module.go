package promotionvoting

import (
	"log/slog"
	"time"

	"promovote/contexts/workforce/promotion-voting/adapters/directory"
	httpadapter "promovote/contexts/workforce/promotion-voting/adapters/http"
	"promovote/contexts/workforce/promotion-voting/adapters/memory"
	"promovote/contexts/workforce/promotion-voting/application/commands"
	"promovote/contexts/workforce/promotion-voting/application/eligibility"
	"promovote/contexts/workforce/promotion-voting/application/queries"
	"promovote/contexts/workforce/promotion-voting/application/tally"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Lifecycle commands.LifecycleManager
	Queries   queries.ProposalQueries
	Store     *memory.Store
	Roster    *directory.Roster
}

type Dependencies struct {
	Proposals      ports.ProposalRepository
	Idempotency    ports.IdempotencyStore
	Directory      ports.Directory
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Metrics        ports.Metrics
	Hierarchy      entities.PositionHierarchy
	IdempotencyTTL time.Duration
	HistoryLimit   int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	hierarchy := deps.Hierarchy
	if len(hierarchy.Positions()) == 0 {
		hierarchy = entities.MustPositionHierarchy(entities.DefaultPositions)
	}
	resolver := eligibility.Resolver{
		Hierarchy: hierarchy,
		Proposals: deps.Proposals,
		Directory: deps.Directory,
		Logger:    deps.Logger,
	}
	lifecycle := commands.LifecycleManager{
		Proposals:   deps.Proposals,
		Eligibility: resolver,
		Tally: tally.Engine{
			Recorder: deps.Proposals,
			Metrics:  deps.Metrics,
			Logger:   deps.Logger,
		},
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Metrics:        deps.Metrics,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	proposalQueries := queries.ProposalQueries{
		Proposals:    deps.Proposals,
		Clock:        deps.Clock,
		HistoryLimit: deps.HistoryLimit,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycle,
			Queries:   proposalQueries,
			Logger:    deps.Logger,
		},
		Lifecycle: lifecycle,
		Queries:   proposalQueries,
	}
}

func NewInMemoryModule(employees []entities.Employee, logger *slog.Logger) Module {
	store := memory.NewStore(nil)
	roster := directory.NewRoster(employees)
	module := NewModule(Dependencies{
		Proposals:      store,
		Idempotency:    store,
		Directory:      roster,
		Clock:          store,
		IDGen:          store,
		Hierarchy:      entities.MustPositionHierarchy(entities.DefaultPositions),
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Roster = roster
	return module
}
