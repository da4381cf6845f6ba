package validationengine

import (
	"log/slog"
	"time"

	httpadapter "almoner/contexts/mutual-aid/validation-engine/adapters/http"
	"almoner/contexts/mutual-aid/validation-engine/adapters/memory"
	"almoner/contexts/mutual-aid/validation-engine/application/commands"
	"almoner/contexts/mutual-aid/validation-engine/application/queries"
	"almoner/contexts/mutual-aid/validation-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Votes       ports.VoteStore
	Requests    ports.AidRequestStore
	Profiles    ports.ValidatorProfileStore
	Snapshots   ports.SnapshotCache
	Rewards     ports.RewardPolicy
	Funding     ports.FundingInitiator
	Notifier    ports.Notifier
	Dedup       ports.EventDedupStore
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	SnapshotTTL time.Duration
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	dispatcher := commands.ResolutionDispatcher{
		Funding:       deps.Funding,
		Notifications: deps.Notifier,
		Dedup:         deps.Dedup,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
	}
	validationUseCase := commands.ValidationUseCase{
		Votes:       deps.Votes,
		Requests:    deps.Requests,
		Profiles:    deps.Profiles,
		Snapshots:   deps.Snapshots,
		Rewards:     deps.Rewards,
		Dispatcher:  dispatcher,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		SnapshotTTL: deps.SnapshotTTL,
		Logger:      deps.Logger,
	}
	pendingUseCase := queries.PendingValidationsUseCase{
		Requests: deps.Requests,
		Votes:    deps.Votes,
		Profiles: deps.Profiles,
		Rewards:  deps.Rewards,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	historyUseCase := queries.ValidationHistoryUseCase{
		Votes:  deps.Votes,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Validations: validationUseCase,
			Pending:     pendingUseCase,
			History:     historyUseCase,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the in-memory store, which also
// stands in as funding initiator and notifier for tests and local runs.
func NewInMemoryModule(rewards ports.RewardPolicy, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Votes:       store,
		Requests:    store,
		Profiles:    store,
		Rewards:     rewards,
		Funding:     store,
		Notifier:    store,
		Dedup:       store,
		Clock:       store,
		IDGen:       store,
		SnapshotTTL: 2 * time.Minute,
		Logger:      logger,
	})
	module.Store = store
	return module
}
