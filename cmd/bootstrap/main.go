// The bootstrap tool seeds a fresh exploration database: domain novelty
// scores for the standard seed domains and optional arm priors from a YAML
// file, so the first rounds after deployment start from informed posteriors
// instead of a cold uniform prior.
package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/generator"
	"github.com/danielpatrickdp/exploration-engine/internal/store"
)

// #region seed-file

// seedFile is the optional YAML shape for arm priors and novelty overrides.
type seedFile struct {
	Novelty map[string]float64 `yaml:"novelty"`
	Arms    []seedArm          `yaml:"arms"`
}

type seedArm struct {
	ArmID     string  `yaml:"arm_id"`
	Successes int     `yaml:"successes"`
	Failures  int     `yaml:"failures"`
	AvgReward float64 `yaml:"avg_reward"`
}

// #endregion seed-file

// #region main

func main() {
	dbPath := envOr("EXPLORE_DB", "exploration.db")

	fmt.Println("=== Exploration Bootstrap ===")
	fmt.Printf("  DB: %s\n", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	// Default novelty: every seed domain starts fully unexplored.
	novelty := make(map[string]float64)
	for _, domain := range generator.DefaultConfig().SeedDomains {
		novelty[domain] = 1.0
	}

	var arms []seedArm
	if len(os.Args) > 1 {
		seeds, err := loadSeedFile(os.Args[1])
		if err != nil {
			log.Fatalf("seed file: %v", err)
		}
		for domain, score := range seeds.Novelty {
			novelty[domain] = score
		}
		arms = seeds.Arms
	}

	for domain, score := range novelty {
		if err := db.SaveNovelty(domain, score); err != nil {
			log.Fatalf("save novelty %s: %v", domain, err)
		}
	}
	fmt.Printf("  Seeded novelty for %d domains\n", len(novelty))

	for _, arm := range arms {
		pulls := arm.Successes + arm.Failures
		stats := bandit.ArmStats{
			ArmID:       arm.ArmID,
			Pulls:       pulls,
			Successes:   arm.Successes,
			Failures:    arm.Failures,
			TotalReward: arm.AvgReward * float64(pulls),
			Alpha:       1 + float64(arm.Successes),
			Beta:        1 + float64(arm.Failures),
		}
		if err := db.SaveArm(stats); err != nil {
			log.Fatalf("save arm %s: %v", arm.ArmID, err)
		}
	}
	if len(arms) > 0 {
		fmt.Printf("  Seeded %d arm priors\n", len(arms))
	}
	fmt.Println("Done.")
}

// #endregion main

// #region helpers

func loadSeedFile(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, err
	}
	var s seedFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return seedFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, arm := range s.Arms {
		if arm.ArmID == "" {
			return seedFile{}, fmt.Errorf("seed arm with empty arm_id")
		}
		if arm.AvgReward < 0 || arm.AvgReward > 1 {
			return seedFile{}, fmt.Errorf("arm %s avg_reward out of [0,1]", arm.ArmID)
		}
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
