package bandit

import "time"

// #region strategy-enum

// Strategy selects how candidates are ranked.
type Strategy string

const (
	StrategyEpsilonGreedy    Strategy = "epsilon_greedy"
	StrategyUCB              Strategy = "ucb"
	StrategyThompsonSampling Strategy = "thompson_sampling"
	StrategyAdaptive         Strategy = "adaptive"
)

// #endregion strategy-enum

// #region arm-stats

// ArmStats tracks outcomes for one (hypothesis type, target area) arm.
// Alpha and beta are the Beta-posterior parameters; both stay > 0 for any
// prior strength > 0, which NewArmStats enforces.
type ArmStats struct {
	ArmID       string
	Pulls       int
	Successes   int
	Failures    int
	TotalReward float64
	Alpha       float64
	Beta        float64
	LastPulled  time.Time
	UCBScore    float64 // last computed, advisory only
}

// optimisticDefault is the assumed average reward for an arm never pulled.
const optimisticDefault = 0.5

// AvgReward returns totalReward/pulls, or an optimistic default before any pull.
func (a *ArmStats) AvgReward() float64 {
	if a.Pulls == 0 {
		return optimisticDefault
	}
	return a.TotalReward / float64(a.Pulls)
}

// #endregion arm-stats

// #region config

// Config holds the prioritizer tuning knobs, copied from the engine policy
// at the start of each round.
type Config struct {
	Strategy           Strategy
	UCBConstant        float64 // exploration constant c in UCB1
	PriorStrength      float64 // Beta prior pseudo-counts
	NoveltyBoostFactor float64
	Epsilon            float64 // random-promotion probability for epsilon_greedy
}

// DefaultConfig returns the standard prioritizer configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:           StrategyAdaptive,
		UCBConstant:        1.414,
		PriorStrength:      1.0,
		NoveltyBoostFactor: 1.5,
		Epsilon:            0.1,
	}
}

// #endregion config

// #region outcome

// Outcome is one experiment's contribution to an arm.
type Outcome struct {
	ArmID   string
	Success bool
	Reward  float64
}

// #endregion outcome
