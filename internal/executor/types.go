package executor

import (
	"context"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region interfaces

// Integrator persists a validated finding. The integration sink implements it.
type Integrator interface {
	Integrate(ctx context.Context, h *hypothesis.Hypothesis) error
}

// Releaser is called exactly once per execution, on every exit path, after
// all cleanup ran. Releasing, not completing, is what frees the admission
// slot; the engine implements it by removing the hypothesis from the active
// map and archiving terminal ones.
type Releaser interface {
	Release(h *hypothesis.Hypothesis)
}

// #endregion interfaces

// #region deps

// Deps wires the executor to its collaborators and engine-owned state.
type Deps struct {
	Generation collab.Generator
	Safety     collab.Safety
	Sandbox    collab.SandboxManager
	Rollback   collab.RollbackStore
	Arms       *bandit.ArmStore
	Novelty    *bandit.NoveltyTracker
	Sink       Integrator
	Releaser   Releaser
	Bus        *telemetry.Bus
}

// #endregion deps

// #region thresholds

// Per-type shouldIntegrate confidence thresholds.
var integrateThresholds = map[hypothesis.Type]float64{
	hypothesis.TypeProviderComparison:   0.55,
	hypothesis.TypeStrategyOptimization: 0.55,
	hypothesis.TypeCapabilityDiscovery:  0.5,
	hypothesis.TypeTransferLearning:     0.6,
	hypothesis.TypeAdversarialProbe:     0.55,
	hypothesis.TypeMutationExperiment:   0.6,
	hypothesis.TypeCrossDomain:          0.6,
}

// #endregion thresholds
