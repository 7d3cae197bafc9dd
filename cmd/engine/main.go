// The engine daemon runs exploration rounds on a schedule until signalled.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/exploration-engine/internal/codec"
	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/engine"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/store"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
	"github.com/danielpatrickdp/exploration-engine/internal/tracing"
)

// #region main

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := policy.ParseDaemonEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pol := policy.Default()
	if cfg.PolicyPath != "" {
		pol, err = policy.LoadFile(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("policy: %v", err)
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, "exploration-engine")
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	deps := engine.Deps{
		Store: db,
		Bus:   telemetry.NewBus(),
	}
	if cfg.DryRun {
		log.Println("dry-run mode: all collaborators are in-process fakes")
		deps.Generation = collab.LoopbackGenerator{}
		deps.Knowledge = collab.LoopbackKnowledge{}
		deps.Vectors = collab.NewLoopbackVectors()
		deps.Safety = collab.NewLoopbackSafety()
		deps.Sandbox = collab.NewLoopbackSandbox()
		deps.Rollback = collab.NewLoopbackRollback()
	} else {
		client, err := codec.New(cfg.CollaboratorAddr)
		if err != nil {
			log.Fatalf("connect collaborator %s: %v", cfg.CollaboratorAddr, err)
		}
		defer client.Close()
		deps.Generation = client
		deps.Knowledge = client
		deps.Vectors = client
		// Until the safety, sandbox and rollback services grow remote
		// endpoints these stay local even against a live collaborator.
		deps.Safety = collab.NewLoopbackSafety()
		deps.Sandbox = collab.NewLoopbackSandbox()
		deps.Rollback = collab.NewLoopbackRollback()
	}

	eng, err := engine.New(deps, pol)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	log.Printf("exploration engine ready: db=%s collaborator=%s tick=%s strategy=%s",
		cfg.DBPath, cfg.CollaboratorAddr, cfg.TickInterval, pol.ExplorationStrategy)

	eng.Run(ctx, cfg.InitialDelay, cfg.TickInterval)

	log.Println("shutting down, waiting for in-flight experiments")
	eng.Shutdown()
}

// #endregion main
