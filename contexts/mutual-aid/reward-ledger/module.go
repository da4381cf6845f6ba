package rewardledger

import (
	"log/slog"

	"almoner/contexts/mutual-aid/reward-ledger/adapters/memory"
	"almoner/contexts/mutual-aid/reward-ledger/application"
	"almoner/contexts/mutual-aid/reward-ledger/application/workers"
	"almoner/contexts/mutual-aid/reward-ledger/ports"
)

type Module struct {
	Service application.RewardService
	Retrier workers.CreditRetrier
	Store   *memory.Store
}

type Dependencies struct {
	Ledger   ports.LedgerRepository
	Profiles ports.ValidatorProfileUpdater
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.RewardService{
			Ledger:   deps.Ledger,
			Profiles: deps.Profiles,
			Clock:    deps.Clock,
			IDGen:    deps.IDGen,
			Logger:   deps.Logger,
		},
		Retrier: workers.CreditRetrier{
			Ledger:   deps.Ledger,
			Profiles: deps.Profiles,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Ledger:   store,
		Profiles: store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
