// Package policy holds the engine's tunable configuration: the exploration
// policy (immutable per round, mutated only through Engine.UpdatePolicy) and
// the daemon's environment configuration.
package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
)

// #region policy

// Policy configures one exploration cycle.
type Policy struct {
	ExplorationStrategy      bandit.Strategy `yaml:"exploration_strategy"`
	UCBExplorationConstant   float64         `yaml:"ucb_exploration_constant"`
	ThompsonPriorStrength    float64         `yaml:"thompson_prior_strength"`
	NoveltyBoostFactor       float64         `yaml:"novelty_boost_factor"`
	Epsilon                  float64         `yaml:"epsilon"`
	MaxConcurrentExperiments int             `yaml:"max_concurrent_experiments"`
	MaxCostPerExperiment     float64         `yaml:"max_cost_per_experiment"`
	RequireHumanApproval     bool            `yaml:"require_human_approval"`
	RollbackEnabled          bool            `yaml:"rollback_enabled"`
	ExperimentTimeout        time.Duration   `yaml:"experiment_timeout"`
}

// Default returns the standard policy.
func Default() Policy {
	return Policy{
		ExplorationStrategy:      bandit.StrategyAdaptive,
		UCBExplorationConstant:   1.414,
		ThompsonPriorStrength:    1.0,
		NoveltyBoostFactor:       1.5,
		Epsilon:                  0.1,
		MaxConcurrentExperiments: 3,
		MaxCostPerExperiment:     10.0,
		RequireHumanApproval:     false,
		RollbackEnabled:          true,
		ExperimentTimeout:        5 * time.Minute,
	}
}

// Validate rejects configurations the engine cannot run with.
func (p Policy) Validate() error {
	switch p.ExplorationStrategy {
	case bandit.StrategyEpsilonGreedy, bandit.StrategyUCB,
		bandit.StrategyThompsonSampling, bandit.StrategyAdaptive:
	default:
		return fmt.Errorf("unknown exploration strategy %q", p.ExplorationStrategy)
	}
	if p.MaxConcurrentExperiments < 1 {
		return fmt.Errorf("max_concurrent_experiments must be >= 1, got %d", p.MaxConcurrentExperiments)
	}
	if p.ThompsonPriorStrength <= 0 {
		return fmt.Errorf("thompson_prior_strength must be > 0, got %f", p.ThompsonPriorStrength)
	}
	if p.ExperimentTimeout <= 0 {
		return fmt.Errorf("experiment_timeout must be > 0, got %s", p.ExperimentTimeout)
	}
	return nil
}

// BanditConfig projects the policy onto the prioritizer's knobs.
func (p Policy) BanditConfig() bandit.Config {
	return bandit.Config{
		Strategy:           p.ExplorationStrategy,
		UCBConstant:        p.UCBExplorationConstant,
		PriorStrength:      p.ThompsonPriorStrength,
		NoveltyBoostFactor: p.NoveltyBoostFactor,
		Epsilon:            p.Epsilon,
	}
}

// #endregion policy

// #region yaml

// LoadFile reads a policy YAML file over the defaults.
func LoadFile(path string) (Policy, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// #endregion yaml

// #region daemon-config

// DaemonConfig is the process-level configuration, read from environment
// variables.
type DaemonConfig struct {
	DBPath           string        `env:"EXPLORE_DB" envDefault:"exploration.db"`
	CollaboratorAddr string        `env:"EXPLORE_COLLAB_ADDR" envDefault:"localhost:50061"`
	PolicyPath       string        `env:"EXPLORE_POLICY_FILE"`
	TickInterval     time.Duration `env:"EXPLORE_TICK_INTERVAL" envDefault:"15m"`
	InitialDelay     time.Duration `env:"EXPLORE_INITIAL_DELAY" envDefault:"1m"`
	DryRun           bool          `env:"EXPLORE_DRY_RUN" envDefault:"true"`
}

// ParseDaemonEnv loads DaemonConfig from the environment.
func ParseDaemonEnv() (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// #endregion daemon-config
