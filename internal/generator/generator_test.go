package generator

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region mocks

type mockKnowledge struct {
	recommendations []string
	recErr          error
	profile         collab.ProviderProfile
	profileErr      error
	goals           map[string]collab.GoalStats
	goalsErr        error
}

func (m *mockKnowledge) ProviderRecommendations(context.Context, string) ([]string, error) {
	return m.recommendations, m.recErr
}

func (m *mockKnowledge) ProviderProfile(context.Context, string) (collab.ProviderProfile, error) {
	return m.profile, m.profileErr
}

func (m *mockKnowledge) GoalStatistics(context.Context) (map[string]collab.GoalStats, error) {
	return m.goals, m.goalsErr
}

type mockVectors struct {
	docs      []collab.Document
	searchErr error
	added     int
}

func (m *mockVectors) Search(context.Context, string, int) ([]collab.Document, error) {
	return m.docs, m.searchErr
}

func (m *mockVectors) Add(context.Context, string, map[string]string) error {
	m.added++
	return nil
}

type staticHistory struct {
	items []*hypothesis.Hypothesis
}

func (h *staticHistory) Recent(int) []*hypothesis.Hypothesis { return h.items }

// #endregion mocks

func healthyKnowledge() *mockKnowledge {
	return &mockKnowledge{
		recommendations: []string{"provider-a", "provider-b", "provider-c"},
		profile: collab.ProviderProfile{
			ID:          "provider-a",
			TaskHistory: []string{"coding", "math"},
			Metrics:     map[string]float64{"quality": 0.8},
		},
		goals: map[string]collab.GoalStats{
			"improve-planning": {SuccessRate: 0.3, Attempts: 10},
		},
	}
}

func newTestGenerator(k collab.KnowledgeStore, v collab.VectorStore, h History) *Generator {
	return New(k, v, nil, h, rand.New(rand.NewSource(11)), DefaultConfig())
}

func TestGenerateProducesCandidatesFromAllSources(t *testing.T) {
	g := newTestGenerator(healthyKnowledge(), &mockVectors{}, &staticHistory{})
	cands := g.Generate(context.Background())
	if len(cands) == 0 {
		t.Fatal("expected candidates from healthy collaborators")
	}

	seen := make(map[hypothesis.Type]bool)
	for _, c := range cands {
		seen[c.Type] = true
		if c.Status != hypothesis.StatusPending {
			t.Fatalf("candidate %s not pending: %s", c.ID, c.Status)
		}
		if c.ID == "" || c.TargetArea == "" {
			t.Fatalf("candidate missing identity: %+v", c)
		}
	}
	for _, want := range []hypothesis.Type{
		hypothesis.TypeProviderComparison,
		hypothesis.TypeStrategyOptimization,
		hypothesis.TypeAdversarialProbe,
		hypothesis.TypeCrossDomain,
	} {
		if !seen[want] {
			t.Fatalf("no %s candidate generated", want)
		}
	}
}

func TestFailingCollaboratorDoesNotAbortRound(t *testing.T) {
	k := healthyKnowledge()
	k.recErr = errors.New("knowledge store down")
	k.goalsErr = errors.New("knowledge store down")
	v := &mockVectors{searchErr: errors.New("vector store down")}

	g := newTestGenerator(k, v, &staticHistory{})
	cands := g.Generate(context.Background())

	// Cross-domain generation needs no collaborator and still fires.
	found := false
	for _, c := range cands {
		if c.Type == hypothesis.TypeCrossDomain {
			found = true
		}
	}
	if !found {
		t.Fatal("cross-domain generator should survive collaborator outage")
	}
}

func TestPanickingHistoryIsContained(t *testing.T) {
	g := New(healthyKnowledge(), &mockVectors{}, nil, panicHistory{}, rand.New(rand.NewSource(5)), DefaultConfig())
	// Must not panic.
	cands := g.Generate(context.Background())
	for _, c := range cands {
		if c.Type == hypothesis.TypeMutationExperiment {
			t.Fatal("mutation generator should have been suppressed by the panic")
		}
	}
}

type panicHistory struct{}

func (panicHistory) Recent(int) []*hypothesis.Hypothesis { panic("corrupt history") }

func TestAdversarialProbeDrawsDistinctProviders(t *testing.T) {
	g := newTestGenerator(healthyKnowledge(), &mockVectors{}, &staticHistory{})
	for i := 0; i < 50; i++ {
		cands, err := g.adversarialProbes(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(cands) != 1 {
			t.Fatalf("expected exactly 1 probe, got %d", len(cands))
		}
		cfg, ok := cands[0].Payload.(hypothesis.AdversarialConfig)
		if !ok {
			t.Fatalf("probe payload has wrong type: %T", cands[0].Payload)
		}
		if cfg.Challenger == cfg.Defender {
			t.Fatalf("challenger and defender must differ, both %s", cfg.Challenger)
		}
	}
}

func TestMutationUsesValidatedHistory(t *testing.T) {
	base := hypothesis.New(hypothesis.TypeCapabilityDiscovery, "base experiment", "planning",
		hypothesis.LevelMedium, hypothesis.LevelLow, 1)
	base.Status = hypothesis.StatusValidated

	g := newTestGenerator(healthyKnowledge(), &mockVectors{}, &staticHistory{items: []*hypothesis.Hypothesis{base}})
	cands, err := g.mutations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(cands))
	}
	cfg, ok := cands[0].Payload.(hypothesis.MutationConfig)
	if !ok {
		t.Fatalf("mutation payload has wrong type: %T", cands[0].Payload)
	}
	if cfg.BasePrompt != "base experiment" {
		t.Fatalf("mutation should build on history, got %q", cfg.BasePrompt)
	}
	if cands[0].TargetArea != "planning" {
		t.Fatalf("mutation should inherit target area, got %s", cands[0].TargetArea)
	}
}

func TestGeneratorOutputCapped(t *testing.T) {
	k := healthyKnowledge()
	// Many weak goals would produce many strategy hypotheses without a cap.
	k.goals = map[string]collab.GoalStats{
		"g1": {SuccessRate: 0.1, Attempts: 5},
		"g2": {SuccessRate: 0.2, Attempts: 5},
		"g3": {SuccessRate: 0.3, Attempts: 5},
		"g4": {SuccessRate: 0.4, Attempts: 5},
	}
	g := newTestGenerator(k, &mockVectors{}, &staticHistory{})
	cands, err := g.strategyOptimizations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) > DefaultConfig().MaxPerGenerator {
		t.Fatalf("generator exceeded cap: %d", len(cands))
	}
}
