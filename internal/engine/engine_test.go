package engine

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/exploration-engine/internal/artifact"
	"github.com/danielpatrickdp/exploration-engine/internal/bandit"
	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/findings"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
	"github.com/danielpatrickdp/exploration-engine/internal/policy"
	"github.com/danielpatrickdp/exploration-engine/internal/store"
	"github.com/danielpatrickdp/exploration-engine/internal/telemetry"
)

// #region mocks

type mockKnowledge struct {
	mu    sync.Mutex
	calls int
}

func (m *mockKnowledge) bump() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockKnowledge) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockKnowledge) ProviderRecommendations(context.Context, string) ([]string, error) {
	m.bump()
	return []string{"provider-a", "provider-b"}, nil
}

func (m *mockKnowledge) ProviderProfile(_ context.Context, id string) (collab.ProviderProfile, error) {
	m.bump()
	return collab.ProviderProfile{ID: id, TaskHistory: []string{"coding"}}, nil
}

func (m *mockKnowledge) GoalStatistics(context.Context) (map[string]collab.GoalStats, error) {
	m.bump()
	return map[string]collab.GoalStats{
		"improve summarization": {SuccessRate: 0.4, Attempts: 8},
	}, nil
}

type mockVectors struct {
	mu    sync.Mutex
	added int
}

func (m *mockVectors) Search(context.Context, string, int) ([]collab.Document, error) {
	return []collab.Document{{Content: "weak hit", Similarity: 0.2}}, nil
}

func (m *mockVectors) Add(context.Context, string, map[string]string) error {
	m.mu.Lock()
	m.added++
	m.mu.Unlock()
	return nil
}

func (m *mockVectors) addedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.added
}

type mockGeneration struct {
	output  string
	release chan struct{} // when set, Generate blocks until closed
}

func (m *mockGeneration) Generate(ctx context.Context, _ collab.GenerateRequest) (string, error) {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	out := m.output
	if out == "" {
		out = "However, the result held; in contrast the baseline did not. " +
			strings.Repeat("Additional novel observations follow. ", 10)
	}
	return out, nil
}

type approvalSafety struct {
	*collab.LoopbackSafety
}

func (s *approvalSafety) Assess(ctx context.Context, action collab.ActionDescriptor) (collab.Assessment, error) {
	a, err := s.LoopbackSafety.Assess(ctx, action)
	a.RequiresHumanApproval = true
	return a, err
}

type eventRecorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *eventRecorder) record(e telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) count(t telemetry.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// #endregion mocks

// #region harness

type fixture struct {
	knowledge *mockKnowledge
	vectors   *mockVectors
	gen       *mockGeneration
	events    *eventRecorder
	engine    *Engine
}

func newFixture(t *testing.T, pol policy.Policy, safety collab.Safety) *fixture {
	t.Helper()
	f := &fixture{
		knowledge: &mockKnowledge{},
		vectors:   &mockVectors{},
		gen:       &mockGeneration{},
		events:    &eventRecorder{},
	}
	if safety == nil {
		safety = collab.NewLoopbackSafety()
	}
	bus := telemetry.NewBus()
	bus.Subscribe(f.events.record)

	eng, err := New(Deps{
		Generation: f.gen,
		Knowledge:  f.knowledge,
		Vectors:    f.vectors,
		Safety:     safety,
		Sandbox:    collab.NewLoopbackSandbox(),
		Rollback:   collab.NewLoopbackRollback(),
		Bus:        bus,
		Rng:        rand.New(rand.NewSource(7)),
	}, pol)
	if err != nil {
		t.Fatal(err)
	}
	f.engine = eng
	return f
}

// #endregion harness

func TestRoundGeneratesRanksAndExecutes(t *testing.T) {
	pol := policy.Default()
	pol.MaxConcurrentExperiments = 3
	f := newFixture(t, pol, nil)

	if err := f.engine.RunExplorationRound(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.engine.Shutdown()

	if f.events.count(telemetry.EventRoundStarted) != 1 {
		t.Fatal("expected round_started")
	}
	if f.events.count(telemetry.EventHypothesesGenerated) != 1 {
		t.Fatal("expected hypotheses_generated")
	}
	selected := f.events.count(telemetry.EventHypothesisSelected)
	if selected == 0 || selected > 3 {
		t.Fatalf("selected %d hypotheses, want 1..3", selected)
	}
	if f.events.count(telemetry.EventExperimentCompleted) != selected {
		t.Fatalf("every admitted experiment should complete, selected=%d completed=%d",
			selected, f.events.count(telemetry.EventExperimentCompleted))
	}

	stats := f.engine.Stats()
	if stats.TotalPulls != selected {
		t.Fatalf("total pulls = %d, want %d", stats.TotalPulls, selected)
	}
	if stats.Active != 0 {
		t.Fatalf("active = %d after shutdown, want 0", stats.Active)
	}
	if stats.HistorySize != selected {
		t.Fatalf("history size = %d, want %d", stats.HistorySize, selected)
	}
}

func TestRoundSkippedAtCapacity(t *testing.T) {
	pol := policy.Default()
	pol.MaxConcurrentExperiments = 1
	f := newFixture(t, pol, nil)
	f.gen.release = make(chan struct{})

	_, err := f.engine.TriggerMutationExperiment(context.Background(),
		"alpha beta gamma delta", "expand", "coding")
	if err != nil {
		t.Fatal(err)
	}

	// The slot is held; the round must skip whole without generating.
	if err := f.engine.RunExplorationRound(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.events.count(telemetry.EventCapacityLimit) != 1 {
		t.Fatal("expected capacity_limit event")
	}
	if f.knowledge.callCount() != 0 {
		t.Fatal("a skipped round must not query collaborators")
	}
	if f.events.count(telemetry.EventHypothesesGenerated) != 0 {
		t.Fatal("a skipped round must not generate")
	}

	close(f.gen.release)
	f.engine.Shutdown()
}

func TestTriggerAtCapacityRejected(t *testing.T) {
	pol := policy.Default()
	pol.MaxConcurrentExperiments = 1
	f := newFixture(t, pol, nil)
	f.gen.release = make(chan struct{})

	if _, err := f.engine.TriggerMutationExperiment(context.Background(),
		"base", "expand", "coding"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.TriggerAdversarialProbe(context.Background(),
		"provider-a", "provider-b", "math", "contradiction"); err == nil {
		t.Fatal("expected capacity error on second trigger")
	}

	close(f.gen.release)
	f.engine.Shutdown()
}

func TestApprovalParkAndResume(t *testing.T) {
	pol := policy.Default()
	pol.RequireHumanApproval = true
	f := newFixture(t, pol, &approvalSafety{collab.NewLoopbackSafety()})

	id, err := f.engine.TriggerMutationExperiment(context.Background(),
		"alpha beta gamma delta", "expand", "coding")
	if err != nil {
		t.Fatal(err)
	}
	f.engine.Shutdown()

	parked := f.engine.AwaitingApproval()
	if len(parked) != 1 || parked[0].ID != id {
		t.Fatalf("awaiting = %v, want the parked hypothesis", parked)
	}
	if parked[0].Status != hypothesis.StatusPending {
		t.Fatalf("parked status = %s, want pending", parked[0].Status)
	}
	if f.events.count(telemetry.EventApprovalPending) != 1 {
		t.Fatal("expected approval_pending event")
	}

	if err := f.engine.ApproveExperiment(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	f.engine.Shutdown()

	if len(f.engine.AwaitingApproval()) != 0 {
		t.Fatal("approved hypothesis must leave the awaiting set")
	}
	hist := f.engine.RecentHistory(10)
	if len(hist) != 1 || !hist[0].Status.Terminal() {
		t.Fatalf("approved run should finish terminally, history=%v", hist)
	}

	if err := f.engine.ApproveExperiment(context.Background(), id); err == nil {
		t.Fatal("double approval must fail")
	}
}

func TestValidatedFindingReachesVectorStore(t *testing.T) {
	pol := policy.Default()
	f := newFixture(t, pol, nil)

	// Expansion with no word overlap scores 0.8, above the mutation threshold.
	f.gen.output = strings.Repeat("novel ", 8)
	_, err := f.engine.TriggerMutationExperiment(context.Background(),
		"alpha beta gamma delta", "expand", "coding")
	if err != nil {
		t.Fatal(err)
	}
	f.engine.Shutdown()

	if f.vectors.addedCount() != 1 {
		t.Fatalf("vector store adds = %d, want 1", f.vectors.addedCount())
	}
	if f.events.count(telemetry.EventFindingIntegrated) == 0 {
		t.Fatal("expected finding_integrated event")
	}

	stats := f.engine.Stats()
	arm := stats.Arms[0]
	if arm.Pulls != 1 || arm.TotalReward != 0.8 {
		t.Fatalf("arm should record the confidence as reward: %+v", arm)
	}
}

func TestUpdatePolicyAppliesLimit(t *testing.T) {
	pol := policy.Default()
	pol.MaxConcurrentExperiments = 1
	f := newFixture(t, pol, nil)
	f.gen.release = make(chan struct{})

	if _, err := f.engine.TriggerMutationExperiment(context.Background(),
		"base", "expand", "coding"); err != nil {
		t.Fatal(err)
	}

	next := policy.Default()
	next.MaxConcurrentExperiments = 2
	if err := f.engine.UpdatePolicy(next); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.TriggerMutationExperiment(context.Background(),
		"base two", "simplify", "math"); err != nil {
		t.Fatalf("raised limit should admit a second experiment: %v", err)
	}

	bad := policy.Default()
	bad.MaxConcurrentExperiments = 0
	if err := f.engine.UpdatePolicy(bad); err == nil {
		t.Fatal("invalid policy must be rejected")
	}

	close(f.gen.release)
	f.engine.Shutdown()
}

func TestEmergenceBoostExpires(t *testing.T) {
	f := newFixture(t, policy.Default(), nil)

	f.engine.ActivateEmergenceBoost(2.0, time.Hour)
	if !f.engine.boostState().Active {
		t.Fatal("boost should be active inside its window")
	}
	f.engine.ActivateEmergenceBoost(2.0, -time.Second)
	if f.engine.boostState().Active {
		t.Fatal("expired boost must deactivate")
	}
}

func TestSetDomainNoveltyClamps(t *testing.T) {
	f := newFixture(t, policy.Default(), nil)
	if err := f.engine.SetDomainNovelty("coding", 1.7); err != nil {
		t.Fatal(err)
	}
	if got := f.engine.Stats().Novelty["coding"]; got != 1.0 {
		t.Fatalf("novelty = %f, want clamped 1.0", got)
	}
}

func TestRingHistoryEvictsOldest(t *testing.T) {
	r := newRing(3)
	var hyps []*hypothesis.Hypothesis
	for i := 0; i < 5; i++ {
		h := hypothesis.New(hypothesis.TypeCrossDomain, "h", "coding",
			hypothesis.LevelLow, hypothesis.LevelLow, 1)
		hyps = append(hyps, h)
		r.add(h)
	}

	recent := r.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("ring holds %d, want 3", len(recent))
	}
	if recent[0].ID != hyps[4].ID || recent[2].ID != hyps[2].ID {
		t.Fatal("Recent must return newest first and evict the oldest")
	}
	if got := r.Recent(1); len(got) != 1 || got[0].ID != hyps[4].ID {
		t.Fatal("Recent(1) must return only the newest")
	}
}

func TestExplorationStatsReportsBanditView(t *testing.T) {
	pol := policy.Default()
	pol.ExplorationStrategy = bandit.StrategyUCB
	f := newFixture(t, pol, nil)

	stats := f.engine.ExplorationStats()
	if stats.Strategy != bandit.StrategyUCB {
		t.Fatalf("strategy = %s, want ucb", stats.Strategy)
	}
	if stats.TotalPulls != 0 || len(stats.Arms) != 0 {
		t.Fatal("fresh engine must report zero pulls and no arms")
	}
	if stats.BoostActive {
		t.Fatal("no boost was activated")
	}
}

func TestQueueArtifactWithoutStoreFails(t *testing.T) {
	f := newFixture(t, policy.Default(), nil)
	if _, err := f.engine.QueueArtifact("prompt_variant", "content", ""); err == nil {
		t.Fatal("expected error without an artifact store")
	}
}

func TestQueueApproveRejectArtifact(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	events := &eventRecorder{}
	bus := telemetry.NewBus()
	bus.Subscribe(events.record)
	eng, err := New(Deps{
		Generation: &mockGeneration{},
		Knowledge:  &mockKnowledge{},
		Vectors:    &mockVectors{},
		Safety:     collab.NewLoopbackSafety(),
		Sandbox:    collab.NewLoopbackSandbox(),
		Rollback:   collab.NewLoopbackRollback(),
		Store:      db,
		Bus:        bus,
		Rng:        rand.New(rand.NewSource(7)),
	}, policy.Default())
	if err != nil {
		t.Fatal(err)
	}

	first, err := eng.QueueArtifact("prompt_variant", "try a terser system prompt", "hyp-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.QueueArtifact("routing_suggestion", "prefer provider b for math", "hyp-2")
	if err != nil {
		t.Fatal(err)
	}

	queued, err := eng.QueuedArtifacts(artifact.StatusQueued)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued = %d, want 2", len(queued))
	}

	if err := eng.ApproveArtifact(first); err != nil {
		t.Fatal(err)
	}
	if err := eng.RejectArtifact(second); err != nil {
		t.Fatal(err)
	}

	queued, err = eng.QueuedArtifacts(artifact.StatusQueued)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 0 {
		t.Fatalf("queued after decisions = %d, want 0", len(queued))
	}
	if events.count(telemetry.EventArtifactQueued) != 2 {
		t.Fatal("expected two artifact_queued events")
	}
	if events.count(telemetry.EventArtifactApproved) != 1 || events.count(telemetry.EventArtifactRejected) != 1 {
		t.Fatal("expected one approval and one rejection event")
	}
}

func TestDecayFindingsPrunesStaleEdges(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "decay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	eng, err := New(Deps{
		Generation: &mockGeneration{},
		Knowledge:  &mockKnowledge{},
		Vectors:    &mockVectors{},
		Safety:     collab.NewLoopbackSafety(),
		Sandbox:    collab.NewLoopbackSandbox(),
		Rollback:   collab.NewLoopbackRollback(),
		Store:      db,
		Rng:        rand.New(rand.NewSource(7)),
	}, policy.Default())
	if err != nil {
		t.Fatal(err)
	}

	if err := eng.graph.IncrementEdge("coding", "math", findings.EdgeDomainDomain, 0.02); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().UTC().Add(-100 * 24 * time.Hour).Format(time.RFC3339)
	if _, err := db.DB().Exec(`UPDATE finding_edges SET updated_at = ?`, stamp); err != nil {
		t.Fatal(err)
	}

	eng.decayFindings()

	edges, err := eng.graph.Neighbors("coding", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Fatalf("stale weak edge should be pruned, got %+v", edges)
	}

	// Without a store there is no graph; maintenance must be a no-op.
	f := newFixture(t, policy.Default(), nil)
	f.engine.decayFindings()
}
