package generator

import (
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region history

// History exposes recently finished hypotheses to the generators.
// The engine's bounded ring buffer implements it.
type History interface {
	Recent(n int) []*hypothesis.Hypothesis
}

// #endregion history

// #region config

// Config bounds generator output.
type Config struct {
	MaxPerGenerator int      // per-generator candidate cap
	SeedDomains     []string // fallback target areas when collaborators are silent
}

// DefaultConfig returns the standard generator configuration.
func DefaultConfig() Config {
	return Config{
		MaxPerGenerator: 2,
		SeedDomains: []string{
			"coding", "reasoning", "math", "creative_writing", "analysis", "planning",
		},
	}
}

// #endregion config

// #region probe-types

// Adversarial probe variants the probe generator draws from.
var probeTypes = []string{"contradiction", "edge_case", "consistency"}

// Mutation variants the mutation generator draws from.
var mutationTypes = []string{"expand", "simplify", "challenge"}

// #endregion probe-types
