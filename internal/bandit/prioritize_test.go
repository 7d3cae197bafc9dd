package bandit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

func makeCandidate(typ hypothesis.Type, area string, impact hypothesis.Level) *hypothesis.Hypothesis {
	return hypothesis.New(typ, "test candidate", area, impact, hypothesis.LevelLow, 1.0)
}

func fixedRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestUCBUnpulledArmRanksFirst(t *testing.T) {
	stats := NewArmStore(1.0)
	// Arm B is well explored with a strong average reward.
	for i := 0; i < 10; i++ {
		stats.Update(Outcome{ArmID: "provider_comparison:coding", Success: true, Reward: 0.8})
	}

	a := makeCandidate(hypothesis.TypeMutationExperiment, "reasoning", hypothesis.LevelLow)
	b := makeCandidate(hypothesis.TypeProviderComparison, "coding", hypothesis.LevelHigh)

	p := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG())
	cfg := DefaultConfig()
	cfg.Strategy = StrategyUCB

	ranked := p.Rank([]*hypothesis.Hypothesis{b, a}, cfg, BoostState{})
	if ranked[0].Hypothesis.ID != a.ID {
		t.Fatalf("expected unpulled arm first, got %s", ranked[0].Hypothesis.ArmID())
	}
	if !math.IsInf(ranked[0].Score, 1) {
		t.Fatalf("unpulled arm score = %f, want +Inf", ranked[0].Score)
	}
}

func TestUCBPrefersHigherAverageReward(t *testing.T) {
	stats := NewArmStore(1.0)
	for i := 0; i < 20; i++ {
		stats.Update(Outcome{ArmID: "adversarial_probe:math", Success: true, Reward: 0.9})
		stats.Update(Outcome{ArmID: "cross_domain:art", Success: false, Reward: 0})
	}

	good := makeCandidate(hypothesis.TypeAdversarialProbe, "math", hypothesis.LevelLow)
	bad := makeCandidate(hypothesis.TypeCrossDomain, "art", hypothesis.LevelLow)

	p := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG())
	cfg := DefaultConfig()
	cfg.Strategy = StrategyUCB

	ranked := p.Rank([]*hypothesis.Hypothesis{bad, good}, cfg, BoostState{})
	if ranked[0].Hypothesis.ID != good.ID {
		t.Fatalf("expected high-reward arm first, got %s", ranked[0].Hypothesis.ArmID())
	}
}

func TestThompsonFavorsStrongPosterior(t *testing.T) {
	stats := NewArmStore(1.0)
	for i := 0; i < 50; i++ {
		stats.Update(Outcome{ArmID: "mutation_experiment:prompts", Success: true, Reward: 0.9})
		stats.Update(Outcome{ArmID: "transfer_learning:vision", Success: false, Reward: 0})
	}

	strong := makeCandidate(hypothesis.TypeMutationExperiment, "prompts", hypothesis.LevelLow)
	weak := makeCandidate(hypothesis.TypeTransferLearning, "vision", hypothesis.LevelLow)

	p := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG())
	cfg := DefaultConfig()
	cfg.Strategy = StrategyThompsonSampling

	// With Beta(51,1) vs Beta(1,51) the strong arm should win essentially always.
	wins := 0
	for i := 0; i < 100; i++ {
		ranked := p.Rank([]*hypothesis.Hypothesis{weak, strong}, cfg, BoostState{})
		if ranked[0].Hypothesis.ID == strong.ID {
			wins++
		}
	}
	if wins < 95 {
		t.Fatalf("strong posterior won only %d/100 rankings", wins)
	}
}

func TestAdaptiveRegimes(t *testing.T) {
	cands := []*hypothesis.Hypothesis{
		makeCandidate(hypothesis.TypeCapabilityDiscovery, "coding", hypothesis.LevelMedium),
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyAdaptive

	// Regime 1: few pulls -> Thompson.
	stats := NewArmStore(1.0)
	p := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG())
	if got := p.Rank(cands, cfg, BoostState{})[0].Strategy; got != StrategyThompsonSampling {
		t.Fatalf("cold start: got %s, want thompson", got)
	}

	// Regime 2: medium pulls -> UCB.
	for i := 0; i < 100; i++ {
		stats.Update(Outcome{ArmID: "x:y", Success: true, Reward: 0.5})
	}
	if got := p.Rank(cands, cfg, BoostState{})[0].Strategy; got != StrategyUCB {
		t.Fatalf("mid regime: got %s, want ucb", got)
	}

	// Regime 3: many pulls, emergence boost -> Thompson.
	for i := 0; i < 150; i++ {
		stats.Update(Outcome{ArmID: "x:y", Success: true, Reward: 0.5})
	}
	if got := p.Rank(cands, cfg, BoostState{Active: true, Multiplier: 2})[0].Strategy; got != StrategyThompsonSampling {
		t.Fatalf("emergence regime: got %s, want thompson", got)
	}

	// Regime 4: many pulls, high novelty -> UCB.
	novelty := NewNoveltyTracker()
	novelty.Set("coding", 0.9)
	p2 := NewPrioritizer(stats, novelty, fixedRNG())
	if got := p2.Rank(cands, cfg, BoostState{})[0].Strategy; got != StrategyUCB {
		t.Fatalf("novelty regime: got %s, want ucb", got)
	}

	// Regime 5: settled -> epsilon greedy.
	if got := p.Rank(cands, cfg, BoostState{})[0].Strategy; got != StrategyEpsilonGreedy {
		t.Fatalf("settled regime: got %s, want epsilon_greedy", got)
	}
}

func TestImpactBoostOnlyInAdaptiveRegime(t *testing.T) {
	stats := NewArmStore(1.0)
	for i := 0; i < 250; i++ {
		stats.Update(Outcome{ArmID: "x:y", Success: true, Reward: 0.5})
	}
	cands := []*hypothesis.Hypothesis{
		makeCandidate(hypothesis.TypeCapabilityDiscovery, "coding", hypothesis.LevelLow),
	}
	boost := BoostState{Active: true, Multiplier: 2}

	// An explicitly configured Thompson strategy scores the raw draw even
	// while an emergence boost is active.
	cfg := DefaultConfig()
	cfg.Strategy = StrategyThompsonSampling
	plain := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG()).Rank(cands, cfg, boost)[0]
	if plain.Strategy != StrategyThompsonSampling {
		t.Fatalf("configured strategy = %s, want thompson", plain.Strategy)
	}

	// The adaptive emergence regime picks Thompson and scales the same draw
	// by the impact tier boosted one step (low -> medium).
	cfg.Strategy = StrategyAdaptive
	boosted := NewPrioritizer(stats, NewNoveltyTracker(), fixedRNG()).Rank(cands, cfg, boost)[0]
	if boosted.Strategy != StrategyThompsonSampling {
		t.Fatalf("adaptive regime = %s, want thompson", boosted.Strategy)
	}

	want := plain.Score * hypothesis.LevelMedium.Score()
	if math.Abs(boosted.Score-want) > 1e-12 {
		t.Fatalf("adaptive boosted score = %f, want %f", boosted.Score, want)
	}
}

func TestGreedyScoreOrdersByImpactRiskCost(t *testing.T) {
	highImpact := hypothesis.New(hypothesis.TypeStrategyOptimization, "hi", "a", hypothesis.LevelHigh, hypothesis.LevelLow, 1)
	riskier := hypothesis.New(hypothesis.TypeStrategyOptimization, "risky", "b", hypothesis.LevelHigh, hypothesis.LevelHigh, 1)
	cheapLow := hypothesis.New(hypothesis.TypeStrategyOptimization, "low", "c", hypothesis.LevelLow, hypothesis.LevelLow, 0.5)

	if greedyScore(highImpact) <= greedyScore(riskier) {
		t.Fatal("lower risk should outrank higher risk at equal impact")
	}
	if greedyScore(highImpact) <= greedyScore(cheapLow) {
		t.Fatal("high impact should outrank low impact")
	}
}

func TestNoveltyBoostMultiplier(t *testing.T) {
	stats := NewArmStore(1.0)
	novelty := NewNoveltyTracker()
	novelty.Set("quantum", 0.8)
	p := NewPrioritizer(stats, novelty, fixedRNG())
	cfg := DefaultConfig()

	// 1 + (0.8*1.5 - 1)*1 = 1.2 without emergence.
	if got := p.noveltyBoost("quantum", cfg, BoostState{}); math.Abs(got-1.2) > 1e-12 {
		t.Fatalf("boost = %f, want 1.2", got)
	}
	// 1 + (0.8*1.5 - 1)*2 = 1.4 with an active 2x emergence boost.
	if got := p.noveltyBoost("quantum", cfg, BoostState{Active: true, Multiplier: 2}); math.Abs(got-1.4) > 1e-12 {
		t.Fatalf("boosted = %f, want 1.4", got)
	}
	// Unknown domains are neutral.
	if got := p.noveltyBoost("unknown", cfg, BoostState{}); got != 1 {
		t.Fatalf("unknown domain boost = %f, want 1", got)
	}
}
