// Command acpd runs the Agent Commerce Protocol core as a single process:
// the commerce plane (registry, agreements, escrow, discovery, predictions)
// and the orchestration plane (agent registry, task queue, message bus,
// orchestrator), fronted by the HTTP/websocket facade.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentcommerce/acp-core/internal/agreement"
	"github.com/agentcommerce/acp-core/internal/config"
	"github.com/agentcommerce/acp-core/internal/discovery"
	domainorch "github.com/agentcommerce/acp-core/internal/domain/orchestration"
	"github.com/agentcommerce/acp-core/internal/escrow"
	"github.com/agentcommerce/acp-core/internal/httpapi"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/orchestration"
	"github.com/agentcommerce/acp-core/internal/prediction"
	"github.com/agentcommerce/acp-core/internal/registry"
	"github.com/agentcommerce/acp-core/internal/storage"
	"github.com/agentcommerce/acp-core/internal/storage/postgres"
	"github.com/agentcommerce/acp-core/internal/storage/postgres/migrations"
	"github.com/agentcommerce/acp-core/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "acpd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, closeDB, err := openGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	v := vault.New(gateway, cfg.Vault.Secret(), log)
	chain := escrow.NewMemoryChain()
	oracleReader := escrow.NewResolver(nil)

	reg := registry.New(gateway, log)
	if err := reg.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate registry: %w", err)
	}
	agreements := agreement.New(gateway, log)
	escrowEngine := escrow.New(gateway, v, chain, oracleReader, log)
	discoveryEngine := discovery.New(gateway, discovery.Weights{
		Relevance:    cfg.Discovery.WeightRelevance,
		Reputation:   cfg.Discovery.WeightReputation,
		Price:        cfg.Discovery.WeightPrice,
		Availability: cfg.Discovery.WeightAvailability,
		Experience:   cfg.Discovery.WeightExperience,
	}, log)
	predictions := prediction.New(gateway, log)

	heartbeatInterval := time.Duration(cfg.Orchestration.HeartbeatIntervalSeconds) * time.Second
	taskTimeout := time.Duration(cfg.Orchestration.TaskTimeoutSeconds) * time.Second
	agentRegistry := orchestration.NewAgentRegistry(heartbeatInterval, log)
	if err := agentRegistry.StartHeartbeatSweep(); err != nil {
		return fmt.Errorf("start heartbeat sweep: %w", err)
	}
	defer agentRegistry.Stop()

	taskQueue := orchestration.NewTaskQueue(cfg.Orchestration.MaxRetries, taskTimeout, log)
	messageBus := orchestration.NewMessageBus(log)
	orchestrator := orchestration.NewOrchestrator(agentRegistry, taskQueue, messageBus, domainorch.LoadBalancing(cfg.Orchestration.LoadBalancing), log)
	defer orchestrator.Stop()

	if err := escrowEngine.StartExpirySweep(cfg.Escrow.ExpirySweepInterval()); err != nil {
		return fmt.Errorf("start escrow expiry sweep: %w", err)
	}
	defer escrowEngine.Stop()

	srv := httpapi.NewServer(httpapi.Deps{
		Registry:      reg,
		Agreements:    agreements,
		Escrow:        escrowEngine,
		Discovery:     discoveryEngine,
		Orchestrator:  orchestrator,
		AgentRegistry: agentRegistry,
		TaskQueue:     taskQueue,
		MessageBus:    messageBus,
		Predictions:   predictions,

		JWTSecret:       cfg.Auth.JWTSecret,
		RateLimitPerMin: 100,
	}, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Start(addr); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	<-ctx.Done()
	log.Info("acpd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// openGateway opens the Postgres-backed Persistence Gateway if a DSN is
// configured, applying embedded migrations; otherwise it falls back to the
// in-process MemoryStore for local/dev runs without a database.
func openGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Gateway, func(), error) {
	if cfg.Database.DSN == "" {
		log.Info("acpd: no database DSN configured, using in-memory store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	store, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MigrateOnStart {
		if err := migrations.Apply(ctx, store.DB()); err != nil {
			store.DB().Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	closeFn := func() {
		if err := store.DB().Close(); err != nil {
			log.WithError(err).Warn("acpd: error closing database")
		}
	}
	return store, closeFn, nil
}
