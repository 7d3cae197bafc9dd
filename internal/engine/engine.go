// Package engine coordinates exploration rounds: it generates hypothesis
// candidates, ranks them with the bandit, admits them against the
// concurrency limit and hands them to the executor. It also carries the
// operator control surface (approvals, triggers, stats, policy updates).
package engine

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/danielpatrickdp/exploration-engine/internal/admission"
	"github.com/danielpatrickdp/exploration-engine/internal/artifact"
	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/executor"
	"github.com/danielpatrickdp/exploration-engine/internal/findings"
	"github.com/danielpatrickdp/exploration-engine/internal/generator"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/integration"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/store"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region deps

// Deps wires the engine to its collaborators. Store is optional; without it
// the engine runs purely in memory and warm starts are skipped.
type Deps struct {
	Generation collab.Generator
	Knowledge  collab.KnowledgeStore
	Vectors    collab.VectorStore
	Safety     collab.Safety
	Sandbox    collab.SandboxManager
	Rollback   collab.RollbackStore
	Store      *store.Store
	Bus        *telemetry.Bus
	Rng        *rand.Rand
}

// #endregion deps

// #region engine

// Engine owns all exploration state for the process lifetime.
type Engine struct {
	mu  sync.Mutex // guards pol, boost, awaiting
	pol policy.Policy

	boostMultiplier float64
	boostUntil      time.Time

	awaiting map[string]*hypothesis.Hypothesis

	gen         *generator.Generator
	prioritizer *bandit.Prioritizer
	arms        *bandit.ArmStore
	novelty     *bandit.NoveltyTracker
	exec        *executor.Executor
	slots       *admission.Controller
	bus         *telemetry.Bus
	db          *store.Store
	graph       *findings.Graph
	artifacts   *artifact.Queue
	history     *ring
	rng         *rand.Rand

	roundMu sync.Mutex // one round at a time
	wg      sync.WaitGroup
}

// New builds an engine from its collaborators. When a store is present the
// arm posteriors and domain novelty are warm-started from it and every
// telemetry event is persisted.
func New(deps Deps, pol policy.Policy) (*Engine, error) {
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("engine policy: %w", err)
	}
	if deps.Bus == nil {
		deps.Bus = telemetry.NewBus()
	}
	if deps.Rng == nil {
		deps.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Engine{
		pol:      pol,
		awaiting: make(map[string]*hypothesis.Hypothesis),
		arms:     bandit.NewArmStore(pol.ThompsonPriorStrength),
		novelty:  bandit.NewNoveltyTracker(),
		slots:    admission.NewController(pol.MaxConcurrentExperiments),
		bus:      deps.Bus,
		db:       deps.Store,
		history:  newRing(defaultHistoryCap),
		rng:      deps.Rng,
	}
	e.prioritizer = bandit.NewPrioritizer(e.arms, e.novelty, e.rng)

	if e.db != nil {
		if err := e.warmStart(); err != nil {
			return nil, err
		}
		e.bus.Subscribe(e.db.EventSink())

		var err error
		if e.graph, err = findings.NewGraph(e.db.DB()); err != nil {
			return nil, err
		}
		if e.artifacts, err = artifact.NewQueue(e.db.DB()); err != nil {
			return nil, err
		}
	}

	genCfg := generator.DefaultConfig()
	e.gen = generator.New(deps.Knowledge, deps.Vectors, e.graph, e.history, e.rng, genCfg)

	var recorder integration.FindingRecorder
	var queuer integration.ArtifactQueuer
	if e.graph != nil {
		recorder = e.graph
	}
	if e.artifacts != nil {
		queuer = e.artifacts
	}
	sink := integration.NewSink(deps.Vectors, recorder, queuer, e.bus, genCfg.SeedDomains)

	e.exec = executor.New(executor.Deps{
		Generation: deps.Generation,
		Safety:     deps.Safety,
		Sandbox:    deps.Sandbox,
		Rollback:   deps.Rollback,
		Arms:       e.arms,
		Novelty:    e.novelty,
		Sink:       sink,
		Releaser:   e,
		Bus:        e.bus,
	})
	return e, nil
}

// warmStart restores arm posteriors and domain novelty from the store.
func (e *Engine) warmStart() error {
	arms, err := e.db.LoadArms()
	if err != nil {
		return fmt.Errorf("load arms: %w", err)
	}
	e.arms.Restore(arms)

	novelty, err := e.db.LoadNovelty()
	if err != nil {
		return fmt.Errorf("load novelty: %w", err)
	}
	for domain, score := range novelty {
		e.novelty.Set(domain, score)
	}
	return nil
}

// Shutdown waits for in-flight experiments to finish.
func (e *Engine) Shutdown() {
	e.wg.Wait()
}

// #endregion engine

// #region release

// Release implements executor.Releaser. It frees the admission slot, parks
// approval-pending hypotheses and archives terminal ones into the ring
// history and the store.
func (e *Engine) Release(h *hypothesis.Hypothesis) {
	e.slots.Release(h.ID)

	if h.Status == hypothesis.StatusPending {
		e.mu.Lock()
		e.awaiting[h.ID] = h
		e.mu.Unlock()
		return
	}
	if !h.Status.Terminal() {
		return
	}

	e.history.add(h)
	if e.db == nil {
		return
	}
	if err := e.db.SaveArm(e.arms.Get(h.ArmID())); err != nil {
		log.Printf("persist arm %s: %v", h.ArmID(), err)
	}
	if err := e.db.AppendHistory(h); err != nil {
		log.Printf("persist history %s: %v", h.ID, err)
	}
	if err := e.db.SaveNovelty(h.TargetArea, e.novelty.Get(h.TargetArea)); err != nil {
		log.Printf("persist novelty %s: %v", h.TargetArea, err)
	}
}

// #endregion release

// #region boost

// boostState reads the emergence boost, expiring it lazily.
func (e *Engine) boostState() bandit.BoostState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.boostUntil.IsZero() || time.Now().After(e.boostUntil) {
		return bandit.BoostState{}
	}
	return bandit.BoostState{Active: true, Multiplier: e.boostMultiplier}
}

// #endregion boost
