package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/exploration-engine/internal/artifact"
	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// The control surface below is what cmd binaries and operator tooling call
// into. Everything here is safe to invoke while rounds are running.

// #region triggers

// TriggerAdversarialProbe bypasses generation and ranking to run one
// operator-requested probe immediately. It still goes through admission and
// the full safety-gated executor.
func (e *Engine) TriggerAdversarialProbe(ctx context.Context, challenger, defender, domain, probeType string) (string, error) {
	h := hypothesis.New(hypothesis.TypeAdversarialProbe,
		fmt.Sprintf("operator probe: %s challenges %s on %s (%s)", challenger, defender, domain, probeType),
		domain, hypothesis.LevelMedium, hypothesis.LevelMedium, 3.0)
	h.Payload = hypothesis.AdversarialConfig{
		Challenger: challenger,
		Defender:   defender,
		ProbeType:  probeType,
	}
	return e.trigger(ctx, h)
}

// TriggerMutationExperiment runs one operator-requested mutation immediately.
func (e *Engine) TriggerMutationExperiment(ctx context.Context, basePrompt, mutationType, domain string) (string, error) {
	h := hypothesis.New(hypothesis.TypeMutationExperiment,
		fmt.Sprintf("operator mutation: %s on %s", mutationType, domain),
		domain, hypothesis.LevelMedium, hypothesis.LevelLow, 2.0)
	h.Payload = hypothesis.MutationConfig{
		BasePrompt:   basePrompt,
		MutationType: mutationType,
	}
	return e.trigger(ctx, h)
}

func (e *Engine) trigger(ctx context.Context, h *hypothesis.Hypothesis) (string, error) {
	if err := e.slots.Admit(h); err != nil {
		return "", err
	}
	e.bus.Emit(telemetry.Event{
		Type:         telemetry.EventHypothesisSelected,
		HypothesisID: h.ID,
		ArmID:        h.ArmID(),
		Reason:       "operator trigger",
	})
	e.dispatch(ctx, h, e.policy(), false)
	return h.ID, nil
}

// #endregion triggers

// #region approval

// ApproveExperiment resumes a hypothesis parked for human approval. The
// resumed run carries the approval through the safety gates.
func (e *Engine) ApproveExperiment(ctx context.Context, id string) error {
	e.mu.Lock()
	h, ok := e.awaiting[id]
	if ok {
		delete(e.awaiting, id)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no experiment awaiting approval with id %s", id)
	}

	if err := e.slots.Admit(h); err != nil {
		// Put it back; the operator can retry once a slot frees.
		e.mu.Lock()
		e.awaiting[id] = h
		e.mu.Unlock()
		return err
	}
	e.dispatch(ctx, h, e.policy(), true)
	return nil
}

// AwaitingApproval lists hypotheses parked for human sign-off.
func (e *Engine) AwaitingApproval() []*hypothesis.Hypothesis {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*hypothesis.Hypothesis, 0, len(e.awaiting))
	for _, h := range e.awaiting {
		out = append(out, h)
	}
	return out
}

// #endregion approval

// #region artifacts

// QueueArtifact places an operator-supplied artifact into the review queue.
func (e *Engine) QueueArtifact(kind, content, hypothesisID string) (string, error) {
	if e.artifacts == nil {
		return "", fmt.Errorf("no artifact store configured")
	}
	id, err := e.artifacts.Add(kind, content, hypothesisID)
	if err != nil {
		return "", err
	}
	e.bus.Emit(telemetry.Event{
		Type:         telemetry.EventArtifactQueued,
		HypothesisID: hypothesisID,
		Fields:       map[string]any{"artifact_id": id, "kind": kind},
	})
	return id, nil
}

// QueuedArtifacts lists artifacts with the given status ("" for all).
func (e *Engine) QueuedArtifacts(status string) ([]artifact.Artifact, error) {
	if e.artifacts == nil {
		return nil, fmt.Errorf("no artifact store configured")
	}
	return e.artifacts.List(status)
}

// ApproveArtifact marks a queued artifact approved.
func (e *Engine) ApproveArtifact(id string) error {
	return e.decideArtifact(id, true)
}

// RejectArtifact marks a queued artifact rejected.
func (e *Engine) RejectArtifact(id string) error {
	return e.decideArtifact(id, false)
}

func (e *Engine) decideArtifact(id string, approve bool) error {
	if e.artifacts == nil {
		return fmt.Errorf("no artifact store configured")
	}
	eventType := telemetry.EventArtifactRejected
	decide := e.artifacts.Reject
	if approve {
		eventType = telemetry.EventArtifactApproved
		decide = e.artifacts.Approve
	}
	if err := decide(id); err != nil {
		return err
	}
	e.bus.Emit(telemetry.Event{
		Type:   eventType,
		Fields: map[string]any{"artifact_id": id},
	})
	return nil
}

// #endregion artifacts

// #region stats

// Stats is a point-in-time snapshot of exploration state.
type Stats struct {
	TotalPulls       int
	Arms             []bandit.ArmStats
	Novelty          map[string]float64
	Active           int
	AwaitingApproval int
	HistorySize      int
	BoostActive      bool
	EventCounts      map[telemetry.EventType]int
	Policy           policy.Policy
}

// Stats returns a snapshot of arms, novelty, capacity and event counts.
func (e *Engine) Stats() Stats {
	boost := e.boostState()

	e.mu.Lock()
	awaiting := len(e.awaiting)
	pol := e.pol
	e.mu.Unlock()

	return Stats{
		TotalPulls:       e.arms.TotalPulls(),
		Arms:             e.arms.Snapshot(),
		Novelty:          e.novelty.All(),
		Active:           e.slots.Len(),
		AwaitingApproval: awaiting,
		HistorySize:      e.history.len(),
		BoostActive:      boost.Active,
		EventCounts:      e.bus.Counts(),
		Policy:           pol,
	}
}

// ExplorationStats is the bandit-side view: how the arms and novelty
// scores currently stand, without engine housekeeping counters.
type ExplorationStats struct {
	TotalPulls  int
	Arms        []bandit.ArmStats
	Novelty     map[string]float64
	BoostActive bool
	Strategy    bandit.Strategy
}

// ExplorationStats returns just the bandit state. Use Stats for the full
// engine snapshot.
func (e *Engine) ExplorationStats() ExplorationStats {
	boost := e.boostState()

	e.mu.Lock()
	strategy := e.pol.ExplorationStrategy
	e.mu.Unlock()

	return ExplorationStats{
		TotalPulls:  e.arms.TotalPulls(),
		Arms:        e.arms.Snapshot(),
		Novelty:     e.novelty.All(),
		BoostActive: boost.Active,
		Strategy:    strategy,
	}
}

// RecentHistory returns up to n finished hypotheses, newest first.
func (e *Engine) RecentHistory(n int) []*hypothesis.Hypothesis {
	return e.history.Recent(n)
}

// #endregion stats

// #region tuning

// SetDomainNovelty records an externally-observed novelty score for a
// domain, persisting it when a store is present.
func (e *Engine) SetDomainNovelty(domain string, score float64) error {
	e.novelty.Set(domain, score)
	if e.db != nil {
		return e.db.SaveNovelty(domain, e.novelty.Get(domain))
	}
	return nil
}

// ActivateEmergenceBoost amplifies novelty weighting for the given window.
// A multiplier <= 0 resets to 1.
func (e *Engine) ActivateEmergenceBoost(multiplier float64, duration time.Duration) {
	if multiplier <= 0 {
		multiplier = 1
	}
	e.mu.Lock()
	e.boostMultiplier = multiplier
	e.boostUntil = time.Now().Add(duration)
	e.mu.Unlock()
}

// UpdatePolicy swaps the active policy after validation. The admission
// limit applies immediately; in-flight experiments keep the policy they
// started with.
func (e *Engine) UpdatePolicy(pol policy.Policy) error {
	if err := pol.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.pol = pol
	e.mu.Unlock()
	e.slots.SetLimit(pol.MaxConcurrentExperiments)
	return nil
}

// #endregion tuning
