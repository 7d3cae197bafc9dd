package replay

import (
	"math/rand"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region types

// StrategyOutcome summarizes one strategy's replay over the whole fixture.
type StrategyOutcome struct {
	Strategy         bandit.Strategy
	CumulativeReward float64
	Pulls            map[string]int // fixture arm id -> times selected
	BestArmShare     float64        // fraction of rounds spent on the truly best arm
}

// AllStrategies is the default comparison set.
var AllStrategies = []bandit.Strategy{
	bandit.StrategyEpsilonGreedy,
	bandit.StrategyUCB,
	bandit.StrategyThompsonSampling,
	bandit.StrategyAdaptive,
}

// #endregion types

// #region run

// Run replays the fixture once per strategy. Every strategy sees the same
// seed, so outcome differences come from selection alone.
func Run(f Fixture, strategies []bandit.Strategy) ([]StrategyOutcome, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		strategies = AllStrategies
	}

	out := make([]StrategyOutcome, 0, len(strategies))
	for _, strategy := range strategies {
		out = append(out, runOne(f, strategy))
	}
	return out, nil
}

// runOne replays the fixture under a single strategy.
func runOne(f Fixture, strategy bandit.Strategy) StrategyOutcome {
	rng := rand.New(rand.NewSource(f.Seed))

	cfg := bandit.DefaultConfig()
	cfg.Strategy = strategy

	arms := bandit.NewArmStore(cfg.PriorStrength)
	novelty := bandit.NewNoveltyTracker()
	for _, arm := range f.Arms {
		c := arm.candidate()
		novelty.Set(c.TargetArea, arm.Novelty)
	}
	prioritizer := bandit.NewPrioritizer(arms, novelty, rng)

	bestArm := bestFixtureArm(f)
	outcome := StrategyOutcome{
		Strategy: strategy,
		Pulls:    make(map[string]int, len(f.Arms)),
	}

	for round := 0; round < f.Rounds; round++ {
		truth := make(map[string]FixtureArm, len(f.Arms))
		candidates := make([]*hypothesis.Hypothesis, len(f.Arms))
		for i, arm := range f.Arms {
			c := arm.candidate()
			candidates[i] = c
			truth[c.ID] = arm
		}

		ranked := prioritizer.Rank(candidates, cfg, bandit.BoostState{})
		selected := ranked[0].Hypothesis
		arm := truth[selected.ID]

		success := rng.Float64() < arm.SuccessProbability
		reward := 0.0
		if success {
			reward = arm.MeanReward
		}
		arms.Update(bandit.Outcome{
			ArmID:   selected.ArmID(),
			Success: success,
			Reward:  reward,
		})
		novelty.DecayOnPull(selected.TargetArea)

		outcome.CumulativeReward += reward
		outcome.Pulls[arm.ArmID]++
	}

	if f.Rounds > 0 {
		outcome.BestArmShare = float64(outcome.Pulls[bestArm.ArmID]) / float64(f.Rounds)
	}
	return outcome
}

// bestFixtureArm returns the arm with the highest expected reward.
func bestFixtureArm(f Fixture) FixtureArm {
	best := f.Arms[0]
	for _, arm := range f.Arms[1:] {
		if arm.SuccessProbability*arm.MeanReward > best.SuccessProbability*best.MeanReward {
			best = arm
		}
	}
	return best
}

// #endregion run
