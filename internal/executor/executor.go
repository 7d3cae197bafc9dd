// Package executor runs one experiment through the safety-gated,
// sandboxed, rollback-protected state machine.
package executor

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region executor-struct

// Executor drives the experiment lifecycle state machine.
type Executor struct {
	deps   Deps
	tracer trace.Tracer
}

// New creates an executor over the given dependencies.
func New(deps Deps) *Executor {
	return &Executor{
		deps:   deps,
		tracer: otel.Tracer("exploration-engine/executor"),
	}
}

// #endregion executor-struct

// #region execute

// Execute runs one hypothesis to a terminal state (or back to pending when
// human approval is required). approved marks a resumed run whose human
// sign-off bypasses the blocking and approval gates.
//
// Cleanup is unconditional: a created sandbox is always removed and the
// releaser always fires, on success, failure and panic alike.
func (e *Executor) Execute(ctx context.Context, h *hypothesis.Hypothesis, pol policy.Policy, approved bool) {
	ctx, cancel := context.WithTimeout(ctx, pol.ExperimentTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "experiment",
		trace.WithAttributes(
			attribute.String("hypothesis.id", h.ID),
			attribute.String("hypothesis.type", string(h.Type)),
			attribute.String("hypothesis.arm", h.ArmID()),
		))
	defer span.End()

	var sandboxID, snapshotID string
	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, h, snapshotID, fmt.Errorf("executor panic: %v", r))
		}
		if sandboxID != "" {
			if err := e.deps.Sandbox.RemoveSandbox(context.WithoutCancel(ctx), sandboxID); err != nil {
				log.Printf("sandbox %s removal failed: %v", sandboxID, err)
			}
		}
		e.deps.Releaser.Release(h)
	}()

	if err := h.Transition(hypothesis.StatusTesting); err != nil {
		e.fail(ctx, h, snapshotID, err)
		return
	}
	e.emit(telemetry.EventExperimentStarted, h, "", nil)

	// Step 1: safety assessment.
	assessment, err := e.deps.Safety.Assess(ctx, collab.ActionDescriptor{
		ActionID:     h.ID,
		Kind:         string(h.Type),
		Description:  h.Description,
		TargetArea:   h.TargetArea,
		DeclaredRisk: string(h.SafetyRisk),
	})
	if err != nil {
		e.fail(ctx, h, snapshotID, fmt.Errorf("safety assessment: %w", err))
		return
	}
	if assessment.Blocked() && !approved {
		// Non-fatal: cancelled before any resource was allocated.
		if terr := h.Transition(hypothesis.StatusCancelled); terr != nil {
			log.Printf("cancel blocked hypothesis %s: %v", h.ID, terr)
		}
		e.emit(telemetry.EventExperimentFailed, h,
			fmt.Sprintf("safety blocked: %s", assessment.BlockingIssues[0]), nil)
		return
	}

	// Step 2: park for human approval.
	if assessment.RequiresHumanApproval && pol.RequireHumanApproval && !approved {
		if terr := h.Transition(hypothesis.StatusPending); terr != nil {
			log.Printf("park hypothesis %s: %v", h.ID, terr)
		}
		e.emit(telemetry.EventApprovalPending, h, "awaiting human approval", nil)
		return
	}

	// Step 3: snapshot for rollback.
	if assessment.RequiresRollbackPlan && pol.RollbackEnabled {
		snapshotID, err = e.deps.Rollback.CreateSnapshot(ctx, "pre-experiment "+h.ID)
		if err != nil {
			e.fail(ctx, h, "", fmt.Errorf("create snapshot: %w", err))
			return
		}
	}

	// Step 4: sandbox with assessment-supplied ceilings.
	if assessment.RequiresSandbox {
		sandboxID, err = e.deps.Sandbox.CreateSandbox(ctx, collab.SandboxSpec{
			ID:            "sbx-" + h.ID,
			Timeout:       assessment.MaxExecutionTime,
			MaxMemoryMB:   assessment.MaxMemoryMB,
			MaxCPUPercent: assessment.MaxCPUPercent,
		})
		if err != nil {
			e.fail(ctx, h, snapshotID, fmt.Errorf("create sandbox: %w", err))
			return
		}
		// The assessment's execution ceiling tightens the uniform deadline.
		if assessment.MaxExecutionTime > 0 && assessment.MaxExecutionTime < pol.ExperimentTimeout {
			var boundedCancel context.CancelFunc
			ctx, boundedCancel = context.WithTimeout(ctx, assessment.MaxExecutionTime)
			defer boundedCancel()
		}
		// A sandbox that cannot run a trivial command is not isolating
		// anything; verify before the experiment proper starts.
		if _, err := e.deps.Sandbox.Exec(ctx, sandboxID, "true"); err != nil {
			e.fail(ctx, h, snapshotID, fmt.Errorf("sandbox readiness: %w", err))
			return
		}
	}

	// Step 5: safety quota tracking opens.
	if err := e.deps.Safety.StartAction(ctx, assessment); err != nil {
		e.fail(ctx, h, snapshotID, fmt.Errorf("safety start: %w", err))
		return
	}

	// Step 6: type-specific handler.
	result := e.runHandler(ctx, h)

	// Step 7: attach infrastructure references and settle status.
	result.SandboxID = sandboxID
	result.SnapshotID = snapshotID
	result.RiskLevel = assessment.RiskLevel

	status := hypothesis.StatusRejected
	if result.ShouldIntegrate {
		status = hypothesis.StatusValidated
	}
	if err := h.Finish(status, result); err != nil {
		e.fail(ctx, h, snapshotID, err)
		return
	}

	// Step 8: commutative arm update. Success without integration still
	// scores zero reward for the bandit.
	reward := 0.0
	if result.ShouldIntegrate {
		reward = result.Confidence
	}
	arm := e.deps.Arms.Update(bandit.Outcome{
		ArmID:   h.ArmID(),
		Success: result.ShouldIntegrate,
		Reward:  reward,
	})
	e.deps.Novelty.DecayOnPull(h.TargetArea)
	e.emit(telemetry.EventArmUpdated, h, "", map[string]any{
		"pulls":      arm.Pulls,
		"avg_reward": arm.AvgReward(),
	})

	// Step 9: integrate or reject; the snapshot is deleted on both paths.
	if result.ShouldIntegrate {
		if err := e.deps.Sink.Integrate(ctx, h); err != nil {
			// The hypothesis stays validated; integration retries are an
			// operator concern surfaced through telemetry.
			log.Printf("integration of %s failed: %v", h.ID, err)
			e.emit(telemetry.EventExperimentFailed, h, "integration failed: "+err.Error(), nil)
		} else {
			e.emit(telemetry.EventFindingIntegrated, h, "", map[string]any{
				"confidence": result.Confidence,
			})
		}
	} else {
		e.emit(telemetry.EventFindingRejected, h, result.Reasoning, map[string]any{
			"confidence": result.Confidence,
		})
	}
	e.deleteSnapshot(ctx, snapshotID)

	// Step 10: safety quota tracking closes.
	if err := e.deps.Safety.CompleteAction(ctx, assessment); err != nil {
		log.Printf("safety complete for %s: %v", h.ID, err)
	}

	e.emit(telemetry.EventExperimentCompleted, h, "", map[string]any{
		"status":     string(h.Status),
		"confidence": result.Confidence,
	})
}

// #endregion execute

// #region failure

// fail cancels the hypothesis and unwinds: best-effort rollback when a
// snapshot exists, then a failure event. Rollback errors are logged, never
// raised; the round must survive any infrastructure fault.
func (e *Executor) fail(ctx context.Context, h *hypothesis.Hypothesis, snapshotID string, cause error) {
	log.Printf("experiment %s failed: %v", h.ID, cause)

	if !h.Status.Terminal() {
		if err := h.Transition(hypothesis.StatusCancelled); err != nil {
			log.Printf("cancel hypothesis %s: %v", h.ID, err)
		}
	}

	if snapshotID != "" {
		ctx := context.WithoutCancel(ctx)
		res, err := e.deps.Rollback.Rollback(ctx, snapshotID)
		if err != nil {
			log.Printf("rollback of %s failed: %v", snapshotID, err)
		} else {
			e.emit(telemetry.EventRollbackExecuted, h, "", map[string]any{
				"snapshot_id":    snapshotID,
				"files_restored": len(res.FilesRestored),
			})
		}
		e.deleteSnapshot(ctx, snapshotID)
	}

	e.emit(telemetry.EventExperimentFailed, h,
		fmt.Sprintf("%v; no changes made to system", cause), nil)
}

// deleteSnapshot is best-effort on every path.
func (e *Executor) deleteSnapshot(ctx context.Context, snapshotID string) {
	if snapshotID == "" {
		return
	}
	if err := e.deps.Rollback.DeleteSnapshot(context.WithoutCancel(ctx), snapshotID); err != nil {
		log.Printf("delete snapshot %s: %v", snapshotID, err)
	}
}

// #endregion failure

// #region emit

func (e *Executor) emit(t telemetry.EventType, h *hypothesis.Hypothesis, reason string, fields map[string]any) {
	e.deps.Bus.Emit(telemetry.Event{
		Type:         t,
		HypothesisID: h.ID,
		ArmID:        h.ArmID(),
		Reason:       reason,
		Fields:       fields,
	})
}

// #endregion emit
