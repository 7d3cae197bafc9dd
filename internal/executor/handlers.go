package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/heuristics"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// Handlers translate a hypothesis into one or more generation calls and a
// normalized result. They are side-effect-free on engine state: data in,
// data out. A failing generation backend is caught here and surfaces as a
// low-confidence failed result, never as an error.

// #region dispatch

// runHandler dispatches to exactly one type-specific handler.
func (e *Executor) runHandler(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	var res *hypothesis.Result
	switch h.Type {
	case hypothesis.TypeProviderComparison:
		res = e.handleProviderComparison(ctx, h)
	case hypothesis.TypeStrategyOptimization:
		res = e.handleStrategyOptimization(ctx, h)
	case hypothesis.TypeCapabilityDiscovery:
		res = e.handleCapabilityDiscovery(ctx, h)
	case hypothesis.TypeTransferLearning:
		res = e.handleTransferLearning(ctx, h)
	case hypothesis.TypeAdversarialProbe:
		res = e.handleAdversarialProbe(ctx, h)
	case hypothesis.TypeMutationExperiment:
		res = e.handleMutation(ctx, h)
	case hypothesis.TypeCrossDomain:
		res = e.handleCrossDomain(ctx, h)
	default:
		res = failedResult(fmt.Sprintf("no handler for hypothesis type %s", h.Type))
	}

	res.Confidence = heuristics.Clamp01(res.Confidence)
	res.ShouldIntegrate = res.Success && res.Confidence >= integrateThresholds[h.Type]
	res.Timestamp = time.Now().UTC()
	return res
}

// failedResult is the normalized shape of a caught generation failure.
func failedResult(reason string) *hypothesis.Result {
	return &hypothesis.Result{
		Success:    false,
		Confidence: 0.1,
		Metrics:    map[string]float64{},
		Reasoning:  reason,
	}
}

// generate is the single entry point handlers use for the backend.
func (e *Executor) generate(ctx context.Context, prompt, provider, taskType, session string) (string, error) {
	return e.deps.Generation.Generate(ctx, collab.GenerateRequest{
		Prompt:    prompt,
		Provider:  provider,
		TaskType:  taskType,
		SessionID: session,
	})
}

// #endregion dispatch

// #region provider-comparison

func (e *Executor) handleProviderComparison(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	prompt := fmt.Sprintf(
		"Compare how two providers would handle a representative %s task. Hypothesis: %s. "+
			"Weigh strengths and weaknesses of each and conclude which is preferable.",
		h.TargetArea, h.Description)
	out, err := e.generate(ctx, prompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	contrastives := heuristics.ContrastiveCount(out)
	confidence := 0.3
	if contrastives >= 2 {
		confidence += 0.2
	}
	if len(out) > 300 {
		confidence += 0.2
	}
	if heuristics.HasExamples(out) {
		confidence += 0.1
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"contrastive_count": float64(contrastives),
			"response_length":   float64(len(out)),
		},
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("comparison weighed %d contrastive points", contrastives),
	}
}

// #endregion provider-comparison

// #region strategy-optimization

func (e *Executor) handleStrategyOptimization(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	prompt := fmt.Sprintf(
		"Propose a concrete revised strategy for: %s. List numbered steps and the metric each step should move.",
		h.Description)
	out, err := e.generate(ctx, prompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	confidence := 0.3
	if heuristics.HasNumberedStructure(out) {
		confidence += 0.25
	}
	if len(out) > 250 {
		confidence += 0.15
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"response_length": float64(len(out)),
		},
		Confidence: confidence,
		Reasoning:  "strategy proposal scored on structure and depth",
	}
}

// #endregion strategy-optimization

// #region capability-discovery

func (e *Executor) handleCapabilityDiscovery(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	prompt := fmt.Sprintf(
		"Attempt a task that would demonstrate an untested capability in %s: %s. Show full working.",
		h.TargetArea, h.Description)
	out, err := e.generate(ctx, prompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	diversity := heuristics.LexicalDiversity(out)
	confidence := 0.25
	if len(out) > 300 {
		confidence += 0.25
	}
	if diversity > 0.5 {
		confidence += 0.2
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"lexical_diversity": diversity,
			"response_length":   float64(len(out)),
		},
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("capability attempt produced %d chars at %.2f diversity", len(out), diversity),
	}
}

// #endregion capability-discovery

// #region transfer-learning

func (e *Executor) handleTransferLearning(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	prompt := fmt.Sprintf(
		"Apply the technique described here to a new domain and report whether it transfers: %s. "+
			"Give at least one concrete worked example.",
		h.Description)
	out, err := e.generate(ctx, prompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	confidence := 0.3
	if heuristics.HasExamples(out) {
		confidence += 0.25
	}
	if heuristics.ContrastiveCount(out) >= 1 {
		confidence += 0.15
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"response_length": float64(len(out)),
		},
		Confidence: confidence,
		Reasoning:  "transfer attempt scored on concreteness and critical weighing",
	}
}

// #endregion transfer-learning

// #region adversarial-probe

func (e *Executor) handleAdversarialProbe(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	cfg, ok := h.Payload.(hypothesis.AdversarialConfig)
	if !ok {
		return failedResult("adversarial probe without adversarial config")
	}

	challenge, err := e.generate(ctx,
		fmt.Sprintf("Construct a hard %s challenge in %s that exposes weaknesses.", cfg.ProbeType, h.TargetArea),
		cfg.Challenger, h.TargetArea, h.ID)
	if err != nil {
		return failedResult("challenger generation failed: " + err.Error())
	}

	defense, err := e.generate(ctx, challenge, cfg.Defender, h.TargetArea, h.ID)
	if err != nil {
		return failedResult("defender generation failed: " + err.Error())
	}

	// A good defense engages with the challenge rather than restating it:
	// contrastive connectives plus substantive length.
	contrastives := heuristics.ContrastiveCount(defense)
	confidence := 0.25
	if contrastives >= 1 {
		confidence += 0.2
	}
	if contrastives >= 3 {
		confidence += 0.1
	}
	if len(defense) > 200 {
		confidence += 0.2
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: fmt.Sprintf("challenge: %s\n\ndefense: %s", challenge, defense),
		Metrics: map[string]float64{
			"contrastive_count": float64(contrastives),
			"defense_length":    float64(len(defense)),
		},
		Confidence: confidence,
		Reasoning: fmt.Sprintf("%s defended a %s probe from %s with %d contrastive moves",
			cfg.Defender, cfg.ProbeType, cfg.Challenger, contrastives),
	}
}

// #endregion adversarial-probe

// #region mutation

func (e *Executor) handleMutation(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	cfg, ok := h.Payload.(hypothesis.MutationConfig)
	if !ok {
		return failedResult("mutation experiment without mutation config")
	}

	var instruction string
	switch cfg.MutationType {
	case "expand":
		instruction = "Expand the following with additional depth and new material: "
	case "simplify":
		instruction = "Rewrite the following as simply and briefly as possible: "
	case "challenge":
		instruction = "Challenge the assumptions in the following and propose alternatives: "
	default:
		return failedResult("unknown mutation type " + cfg.MutationType)
	}

	out, err := e.generate(ctx, instruction+cfg.BasePrompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	effectiveness := mutationEffectiveness(cfg.MutationType, cfg.BasePrompt, out)

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"mutation_effectiveness": effectiveness,
			"length_ratio":           heuristics.LengthRatio(cfg.BasePrompt, out),
		},
		Confidence: effectiveness,
		Reasoning:  fmt.Sprintf("%s mutation scored %.2f effectiveness", cfg.MutationType, effectiveness),
	}
}

// mutationEffectiveness scores a mutation by subtype.
// Expansion must add genuinely new material; simplification must shrink the
// text without churning its vocabulary; a challenge must diverge.
func mutationEffectiveness(mutationType, base, mutated string) float64 {
	ratio := heuristics.LengthRatio(base, mutated)
	overlap := heuristics.WordOverlap(base, mutated)
	diversity := heuristics.LexicalDiversity(mutated)

	switch mutationType {
	case "expand":
		if ratio <= 1.3 {
			return 0.3
		}
		score := 0.6
		if overlap < 0.3 {
			score += 0.2
		}
		return score
	case "simplify":
		if ratio >= 0.8 {
			return 0.3
		}
		score := 0.6
		if diversity < 0.5 {
			score += 0.2
		}
		return score
	case "challenge":
		if diversity > 0.5 {
			return 0.8
		}
		return 0.4
	}
	return 0
}

// #endregion mutation

// #region cross-domain

func (e *Executor) handleCrossDomain(ctx context.Context, h *hypothesis.Hypothesis) *hypothesis.Result {
	prompt := fmt.Sprintf(
		"Test this cross-domain hypothesis: %s. Produce a numbered analysis with at least one worked "+
			"example per point and rate each transfer's promise out of 10.",
		h.Description)
	out, err := e.generate(ctx, prompt, "", h.TargetArea, h.ID)
	if err != nil {
		return failedResult("generation failed: " + err.Error())
	}

	confidence := 0.2
	if heuristics.HasNumberedStructure(out) {
		confidence += 0.15
	}
	if heuristics.HasExamples(out) {
		confidence += 0.15
	}
	if heuristics.HasNumericRatings(out) {
		confidence += 0.15
	}
	if len(out) > 500 {
		confidence += 0.15
	}

	return &hypothesis.Result{
		Success:  true,
		Findings: out,
		Metrics: map[string]float64{
			"response_length": float64(len(out)),
		},
		Confidence: confidence,
		Reasoning:  "cross-domain analysis scored on structure, examples and ratings",
	}
}

// #endregion cross-domain
