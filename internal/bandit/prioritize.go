package bandit

import (
	"math"
	"math/rand"
	"sort"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region types

// Ranked pairs a candidate with the score the active strategy gave it.
type Ranked struct {
	Hypothesis *hypothesis.Hypothesis
	Score      float64
	Strategy   Strategy // strategy that actually scored this round
}

// BoostState carries the emergence-boost flag into one ranking call.
type BoostState struct {
	Active     bool
	Multiplier float64
}

// #endregion types

// #region prioritizer

// Prioritizer ranks candidate hypotheses against the arm statistics.
// Ranking is a pure function of (candidates, stats, novelty, config, rng);
// it mutates nothing but the advisory UCBScore field.
type Prioritizer struct {
	stats   *ArmStore
	novelty *NoveltyTracker
	rng     *rand.Rand
}

// NewPrioritizer creates a prioritizer over the given stores.
// rng must be non-nil; pass a seeded source in tests for determinism.
func NewPrioritizer(stats *ArmStore, novelty *NoveltyTracker, rng *rand.Rand) *Prioritizer {
	return &Prioritizer{stats: stats, novelty: novelty, rng: rng}
}

// #endregion prioritizer

// #region rank

// Adaptive regime boundaries on total pulls across all arms.
const (
	adaptiveThompsonBelow = 50
	adaptiveUCBBelow      = 200
	adaptiveNoveltyFloor  = 0.7
)

// Rank orders candidates highest-priority first under cfg.Strategy.
func (p *Prioritizer) Rank(candidates []*hypothesis.Hypothesis, cfg Config, boost BoostState) []Ranked {
	if len(candidates) == 0 {
		return nil
	}

	strategy := cfg.Strategy
	adaptive := strategy == StrategyAdaptive
	if adaptive {
		strategy = p.pickAdaptive(candidates, boost)
	}

	// The impact-tier boost belongs to the adaptive emergence regime; an
	// explicitly configured strategy scores candidates unmodified.
	impactBoost := adaptive && boost.Active

	ranked := make([]Ranked, len(candidates))
	for i, h := range candidates {
		var score float64
		switch strategy {
		case StrategyUCB:
			score = p.ucbScore(h, cfg, boost)
		case StrategyThompsonSampling:
			score = p.thompsonScore(h, cfg, boost, impactBoost)
		default:
			score = greedyScore(h)
		}
		ranked[i] = Ranked{Hypothesis: h, Score: score, Strategy: strategy}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	// Epsilon exploration: occasionally promote a random candidate.
	if strategy == StrategyEpsilonGreedy && len(ranked) > 1 && p.rng.Float64() < cfg.Epsilon {
		k := 1 + p.rng.Intn(len(ranked)-1)
		ranked[0], ranked[k] = ranked[k], ranked[0]
	}

	return ranked
}

// pickAdaptive chooses the sub-strategy by regime.
func (p *Prioritizer) pickAdaptive(candidates []*hypothesis.Hypothesis, boost BoostState) Strategy {
	total := p.stats.TotalPulls()
	if total < adaptiveThompsonBelow {
		return StrategyThompsonSampling
	}
	if total < adaptiveUCBBelow {
		return StrategyUCB
	}
	if boost.Active {
		return StrategyThompsonSampling
	}
	for _, h := range candidates {
		if p.novelty.Get(h.TargetArea) > adaptiveNoveltyFloor {
			return StrategyUCB
		}
	}
	return StrategyEpsilonGreedy
}

// #endregion rank

// #region ucb

// ucbScore computes avgReward + c*sqrt(ln(totalPulls+1)/armPulls).
// An arm never pulled scores +Inf so it is always explored first.
func (p *Prioritizer) ucbScore(h *hypothesis.Hypothesis, cfg Config, boost BoostState) float64 {
	arm := p.stats.Get(h.ArmID())
	if arm.Pulls == 0 {
		p.stats.setUCBScore(h.ArmID(), math.Inf(1))
		return math.Inf(1)
	}

	total := p.stats.TotalPulls()
	bonus := cfg.UCBConstant * math.Sqrt(math.Log(float64(total)+1)/float64(arm.Pulls))
	score := (arm.AvgReward() + bonus) * p.noveltyBoost(h.TargetArea, cfg, boost)
	p.stats.setUCBScore(h.ArmID(), score)
	return score
}

// #endregion ucb

// #region thompson

// thompsonScore samples the arm's Beta posterior. When the adaptive regime
// runs under an emergence boost the candidate's impact level, boosted one
// tier, scales the draw.
func (p *Prioritizer) thompsonScore(h *hypothesis.Hypothesis, cfg Config, boost BoostState, impactBoost bool) float64 {
	arm := p.stats.Get(h.ArmID())
	sample := sampleBeta(p.rng, arm.Alpha, arm.Beta)
	score := sample * p.noveltyBoost(h.TargetArea, cfg, boost)
	if impactBoost {
		score *= h.ExpectedImpact.Boosted().Score()
	}
	return score
}

// #endregion thompson

// #region greedy

// greedyScore ranks by expected impact minus risk minus cost.
func greedyScore(h *hypothesis.Hypothesis) float64 {
	return h.ExpectedImpact.Score() - 0.5*h.SafetyRisk.Score() - 0.1*h.EstimatedCost
}

// #endregion greedy

// #region novelty-boost

// noveltyBoost computes 1 + (novelty*factor - 1)*multiplier, floored at 0.
// The multiplier is 1 unless an emergence boost is active.
func (p *Prioritizer) noveltyBoost(domain string, cfg Config, boost BoostState) float64 {
	novelty := p.novelty.Get(domain)
	if novelty == 0 {
		return 1
	}
	mult := 1.0
	if boost.Active && boost.Multiplier > 0 {
		mult = boost.Multiplier
	}
	b := 1 + (novelty*cfg.NoveltyBoostFactor-1)*mult
	if b < 0 {
		return 0
	}
	return b
}

// #endregion novelty-boost
