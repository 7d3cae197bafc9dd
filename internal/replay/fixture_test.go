package replay

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleFixture = `
description: two providers, one clearly better
rounds: 100
seed: 42
arms:
  - arm_id: provider_comparison:coding
    success_probability: 0.8
    mean_reward: 0.7
    novelty: 0.2
  - arm_id: provider_comparison:math
    success_probability: 0.2
    mean_reward: 0.3
    novelty: 0.5
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatal(err)
	}
	if f.Rounds != 100 || f.Seed != 42 || len(f.Arms) != 2 {
		t.Fatalf("fixture = %+v", f)
	}
	if f.Arms[0].ArmID != "provider_comparison:coding" || f.Arms[0].MeanReward != 0.7 {
		t.Fatalf("first arm = %+v", f.Arms[0])
	}
}

func TestLoadFixtureRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no rounds": `
arms:
  - arm_id: a:b
    success_probability: 0.5
    mean_reward: 0.5
`,
		"no arms": `
rounds: 10
`,
		"bad probability": `
rounds: 10
arms:
  - arm_id: a:b
    success_probability: 1.5
    mean_reward: 0.5
`,
		"duplicate arm": `
rounds: 10
arms:
  - arm_id: a:b
    success_probability: 0.5
    mean_reward: 0.5
  - arm_id: a:b
    success_probability: 0.5
    mean_reward: 0.5
`,
	}
	for name, content := range cases {
		if _, err := LoadFixture(writeFixture(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCandidateRoundTripsArmID(t *testing.T) {
	arm := FixtureArm{ArmID: "mutation_experiment:planning"}
	c := arm.candidate()
	if c.ArmID() != arm.ArmID {
		t.Fatalf("candidate arm id = %s, want %s", c.ArmID(), arm.ArmID)
	}
	if c.TargetArea != "planning" {
		t.Fatalf("target area = %s", c.TargetArea)
	}
}
