package engine

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/exploration-engine/internal/admission"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region round

// RunExplorationRound executes one full cycle: generate, rank, admit,
// dispatch. A round at capacity is skipped whole; partial fills only happen
// when capacity runs out while admitting an already-ranked batch.
func (e *Engine) RunExplorationRound(ctx context.Context) error {
	e.roundMu.Lock()
	defer e.roundMu.Unlock()

	pol := e.policy()
	boost := e.boostState()

	e.bus.Emit(telemetry.Event{
		Type: telemetry.EventRoundStarted,
		Fields: map[string]any{
			"strategy":     string(pol.ExplorationStrategy),
			"boost_active": boost.Active,
		},
	})

	if !e.slots.HasCapacity() {
		e.bus.Emit(telemetry.Event{
			Type:   telemetry.EventCapacityLimit,
			Reason: "all experiment slots in use",
			Fields: map[string]any{"active": e.slots.Len()},
		})
		return nil
	}

	candidates := e.gen.Generate(ctx)
	candidates = e.filterAffordable(candidates, pol)
	e.bus.Emit(telemetry.Event{
		Type:   telemetry.EventHypothesesGenerated,
		Fields: map[string]any{"count": len(candidates)},
	})
	if len(candidates) == 0 {
		return nil
	}

	ranked := e.prioritizer.Rank(candidates, pol.BanditConfig(), boost)
	for _, r := range ranked {
		if err := e.slots.Admit(r.Hypothesis); err != nil {
			if err == admission.ErrAtCapacity {
				break
			}
			return fmt.Errorf("admit %s: %w", r.Hypothesis.ID, err)
		}
		e.bus.Emit(telemetry.Event{
			Type:         telemetry.EventHypothesisSelected,
			HypothesisID: r.Hypothesis.ID,
			ArmID:        r.Hypothesis.ArmID(),
			Fields: map[string]any{
				"score":    r.Score,
				"strategy": string(r.Strategy),
			},
		})
		e.dispatch(ctx, r.Hypothesis, pol, false)
	}
	return nil
}

// filterAffordable drops candidates whose estimated cost exceeds the
// per-experiment budget.
func (e *Engine) filterAffordable(candidates []*hypothesis.Hypothesis, pol policy.Policy) []*hypothesis.Hypothesis {
	if pol.MaxCostPerExperiment <= 0 {
		return candidates
	}
	out := candidates[:0]
	for _, h := range candidates {
		if h.EstimatedCost <= pol.MaxCostPerExperiment {
			out = append(out, h)
		}
	}
	return out
}

// dispatch runs one admitted hypothesis on its own goroutine. The slot is
// freed by the executor's releaser, never here.
func (e *Engine) dispatch(ctx context.Context, h *hypothesis.Hypothesis, pol policy.Policy, approved bool) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.exec.Execute(ctx, h, pol, approved)
	}()
}

// policy returns a copy of the current policy.
func (e *Engine) policy() policy.Policy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pol
}

// #endregion round
