// Package replay benchmarks bandit strategies offline against a fixture
// describing simulated arms. Operators use it to sanity-check a policy
// change before deploying it: replay the fixture under each strategy and
// compare cumulative reward.
package replay

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region fixture-types

// FixtureArm describes one simulated arm's ground truth.
type FixtureArm struct {
	ArmID              string  `yaml:"arm_id"` // "<hypothesis_type>:<target_area>"
	SuccessProbability float64 `yaml:"success_probability"`
	MeanReward         float64 `yaml:"mean_reward"`
	Novelty            float64 `yaml:"novelty"`
}

// Fixture is the top-level YAML structure for a replay run.
type Fixture struct {
	Description string       `yaml:"description"`
	Rounds      int          `yaml:"rounds"`
	Seed        int64        `yaml:"seed"`
	Arms        []FixtureArm `yaml:"arms"`
}

// #endregion fixture-types

// #region load

// LoadFixture parses and validates a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Validate checks the fixture for replayability.
func (f Fixture) Validate() error {
	if f.Rounds <= 0 {
		return fmt.Errorf("fixture: rounds must be > 0, got %d", f.Rounds)
	}
	if len(f.Arms) == 0 {
		return fmt.Errorf("fixture: no arms")
	}
	seen := make(map[string]bool, len(f.Arms))
	for i, arm := range f.Arms {
		if arm.ArmID == "" {
			return fmt.Errorf("fixture: arm %d has empty arm_id", i)
		}
		if seen[arm.ArmID] {
			return fmt.Errorf("fixture: duplicate arm %s", arm.ArmID)
		}
		seen[arm.ArmID] = true
		if arm.SuccessProbability < 0 || arm.SuccessProbability > 1 {
			return fmt.Errorf("fixture: arm %s success_probability out of [0,1]", arm.ArmID)
		}
		if arm.MeanReward < 0 || arm.MeanReward > 1 {
			return fmt.Errorf("fixture: arm %s mean_reward out of [0,1]", arm.ArmID)
		}
		if arm.Novelty < 0 || arm.Novelty > 1 {
			return fmt.Errorf("fixture: arm %s novelty out of [0,1]", arm.ArmID)
		}
	}
	return nil
}

// #endregion load

// #region candidates

// candidate turns a fixture arm into the hypothesis the prioritizer ranks.
// The arm id encodes type and target area.
func (a FixtureArm) candidate() *hypothesis.Hypothesis {
	typ := string(hypothesis.TypeCapabilityDiscovery)
	area := a.ArmID
	if idx := strings.IndexByte(a.ArmID, ':'); idx > 0 {
		typ = a.ArmID[:idx]
		area = a.ArmID[idx+1:]
	}
	return hypothesis.New(hypothesis.Type(typ), "replay candidate "+a.ArmID, area,
		hypothesis.LevelMedium, hypothesis.LevelLow, 1.0)
}

// #endregion candidates
