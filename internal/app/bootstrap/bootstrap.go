package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	aidrequestservice "almoner/contexts/mutual-aid/aid-request-service"
	requestpostgres "almoner/contexts/mutual-aid/aid-request-service/adapters/postgres"
	rewardledger "almoner/contexts/mutual-aid/reward-ledger"
	rewardpostgres "almoner/contexts/mutual-aid/reward-ledger/adapters/postgres"
	rewardworkers "almoner/contexts/mutual-aid/reward-ledger/application/workers"
	validationengine "almoner/contexts/mutual-aid/validation-engine"
	validationpostgres "almoner/contexts/mutual-aid/validation-engine/adapters/postgres"
	validationworkers "almoner/contexts/mutual-aid/validation-engine/application/workers"
	validationports "almoner/contexts/mutual-aid/validation-engine/ports"
	"almoner/internal/platform/cache"
	"almoner/internal/platform/config"
	"almoner/internal/platform/db"
	"almoner/internal/platform/httpserver"
	"almoner/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server    *httpserver.Server
	postgres  *db.Postgres
	snapshots *cache.SnapshotCache
	logger    *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	outboxRelay   validationworkers.OutboxRelay
	resolution    validationworkers.ResolutionConsumer
	creditRetrier rewardworkers.CreditRetrier

	enableOutboxRelay        bool
	enableResolutionConsumer bool
	enableCreditRetrier      bool
	pollInterval             time.Duration
	logger                   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	var snapshotCache *cache.SnapshotCache
	var snapshots validationports.SnapshotCache
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		snapshotCache, err = cache.NewSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		snapshots = snapshotCache
	}

	validationRepo := validationpostgres.NewRepository(pg.DB, logger)
	requestRepo := requestpostgres.NewRepository(pg.DB, logger)
	ledgerRepo := rewardpostgres.NewRepository(pg.DB, logger)

	rewardModule := rewardledger.NewModule(rewardledger.Dependencies{
		Ledger:   ledgerRepo,
		Profiles: ledgerRepo,
		Clock:    rewardpostgres.SystemClock{},
		IDGen:    rewardpostgres.UUIDGenerator{},
		Logger:   logger,
	})

	validationModule := validationengine.NewModule(validationengine.Dependencies{
		Votes:       validationRepo,
		Requests:    validationRepo,
		Profiles:    validationRepo,
		Snapshots:   snapshots,
		Rewards:     rewardPolicyAdapter{service: rewardModule.Service},
		Funding:     fundDistributionStub{logger: logger},
		Notifier:    outcomeNotifierStub{logger: logger},
		Dedup:       validationRepo,
		Clock:       validationpostgres.SystemClock{},
		IDGen:       validationpostgres.UUIDGenerator{},
		SnapshotTTL: cfg.SnapshotTTL,
		Logger:      logger,
	})

	requestModule := aidrequestservice.NewModule(aidrequestservice.Dependencies{
		Repository: requestRepo,
		Tallies: validationTallyReader{
			votes:    validationRepo,
			requests: validationRepo,
		},
		Clock:  requestpostgres.SystemClock{},
		IDGen:  requestpostgres.UUIDGenerator{},
		Logger: logger,
	})

	server := httpserver.New(validationModule, requestModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:    server,
		postgres:  pg,
		snapshots: snapshotCache,
		logger:    logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.BusBrokers, logger)
	if err != nil {
		return nil, err
	}

	validationRepo := validationpostgres.NewRepository(pg.DB, logger)
	ledgerRepo := rewardpostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		outboxRelay: validationworkers.OutboxRelay{
			Outbox:    validationRepo,
			Publisher: bus,
			Clock:     validationpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		resolution: validationworkers.ResolutionConsumer{
			Subscriber:    bus,
			Dedup:         validationRepo,
			Funding:       fundDistributionStub{logger: logger},
			Notifications: outcomeNotifierStub{logger: logger},
			Clock:         validationpostgres.SystemClock{},
			DedupTTL:      7 * 24 * time.Hour,
			Logger:        logger,
		},
		creditRetrier: rewardworkers.CreditRetrier{
			Ledger:   ledgerRepo,
			Profiles: ledgerRepo,
			Clock:    rewardpostgres.SystemClock{},
			Logger:   logger,
		},
		enableOutboxRelay:        cfg.EnableOutboxRelay,
		enableResolutionConsumer: cfg.EnableResolutionConsumer,
		enableCreditRetrier:      cfg.EnableCreditRetrier,
		pollInterval:             cfg.WorkerPollInterval,
		logger:                   logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.snapshots != nil {
		_ = a.snapshots.Close()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableResolutionConsumer {
		if err := w.resolution.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay", w.enableOutboxRelay,
		"resolution_consumer", w.enableResolutionConsumer,
		"credit_retrier", w.enableCreditRetrier,
	)

	for {
		if w.enableOutboxRelay {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.enableCreditRetrier {
			if _, err := w.creditRetrier.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
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
