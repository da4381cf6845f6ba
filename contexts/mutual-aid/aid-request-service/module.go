package aidrequestservice

import (
	"log/slog"

	httpadapter "almoner/contexts/mutual-aid/aid-request-service/adapters/http"
	"almoner/contexts/mutual-aid/aid-request-service/adapters/memory"
	"almoner/contexts/mutual-aid/aid-request-service/application/commands"
	"almoner/contexts/mutual-aid/aid-request-service/application/queries"
	"almoner/contexts/mutual-aid/aid-request-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Tallies    ports.ValidationTallyReader
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Create: commands.CreateRequestUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			Cancel: commands.CancelRequestUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			Queries: queries.RequestQueries{
				Repository: deps.Repository,
				Tallies:    deps.Tallies,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(tallies ports.ValidationTallyReader, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		Tallies:    tallies,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
