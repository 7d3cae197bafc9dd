package collab

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Loopback implementations back the daemon's dry-run mode: everything
// succeeds locally, nothing leaves the process.

// #region loopback-generation

// LoopbackGenerator answers every prompt with a canned echo.
type LoopbackGenerator struct{}

// Generate returns a deterministic response without leaving the process.
func (LoopbackGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	return fmt.Sprintf("dry-run response for %s task: considered the prompt, "+
		"however no external provider was consulted. Prompt was: %s", req.TaskType, req.Prompt), nil
}

// LoopbackKnowledge serves a static provider roster and goal table.
type LoopbackKnowledge struct{}

// ProviderRecommendations returns the static dry-run roster.
func (LoopbackKnowledge) ProviderRecommendations(context.Context, string) ([]string, error) {
	return []string{"local-a", "local-b"}, nil
}

// ProviderProfile returns an empty profile for any id.
func (LoopbackKnowledge) ProviderProfile(_ context.Context, id string) (ProviderProfile, error) {
	return ProviderProfile{ID: id}, nil
}

// GoalStatistics returns one perpetually struggling goal so the strategy
// generator has something to chew on.
func (LoopbackKnowledge) GoalStatistics(context.Context) (map[string]GoalStats, error) {
	return map[string]GoalStats{
		"improve local reasoning": {SuccessRate: 0.45, Attempts: 6},
	}, nil
}

// LoopbackVectors is an in-memory vector store with naive substring search.
type LoopbackVectors struct {
	mu   sync.Mutex
	docs []Document
}

// NewLoopbackVectors creates an empty in-memory store.
func NewLoopbackVectors() *LoopbackVectors {
	return &LoopbackVectors{}
}

// Search matches on substring. Similarity is kept low so the capability
// generator keeps seeing gaps in dry-run mode.
func (v *LoopbackVectors) Search(_ context.Context, query string, k int) ([]Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []Document
	for _, d := range v.docs {
		if len(out) >= k {
			break
		}
		if query != "" && !strings.Contains(d.Content, query) {
			continue
		}
		out = append(out, Document{Content: d.Content, Metadata: d.Metadata, Similarity: 0.3})
	}
	return out, nil
}

// Add stores the document in memory.
func (v *LoopbackVectors) Add(_ context.Context, text string, metadata map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs = append(v.docs, Document{Content: text, Metadata: metadata})
	return nil
}

// #endregion loopback-generation

// #region loopback-safety

// LoopbackSafety approves everything below its risk ceiling.
type LoopbackSafety struct {
	mu      sync.Mutex
	started map[string]bool
}

// NewLoopbackSafety creates a permissive safety assessor.
func NewLoopbackSafety() *LoopbackSafety {
	return &LoopbackSafety{started: make(map[string]bool)}
}

// Assess sandbox-gates high risk actions and passes the rest through.
func (s *LoopbackSafety) Assess(_ context.Context, action ActionDescriptor) (Assessment, error) {
	a := Assessment{
		ActionID:         action.ActionID,
		RiskLevel:        action.DeclaredRisk,
		MaxExecutionTime: 2 * time.Minute,
		MaxMemoryMB:      512,
		MaxCPUPercent:    50,
	}
	if action.DeclaredRisk == "high" {
		a.RequiresSandbox = true
		a.RequiresRollbackPlan = true
	}
	return a, nil
}

// StartAction records the action as in flight.
func (s *LoopbackSafety) StartAction(_ context.Context, assessment Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[assessment.ActionID] = true
	return nil
}

// CompleteAction clears the in-flight record.
func (s *LoopbackSafety) CompleteAction(_ context.Context, assessment Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.started, assessment.ActionID)
	return nil
}

// #endregion loopback-safety

// #region loopback-sandbox

// LoopbackSandbox tracks sandbox ids without isolating anything.
type LoopbackSandbox struct {
	mu     sync.Mutex
	active map[string]SandboxSpec
}

// NewLoopbackSandbox creates an in-memory sandbox manager.
func NewLoopbackSandbox() *LoopbackSandbox {
	return &LoopbackSandbox{active: make(map[string]SandboxSpec)}
}

// CreateSandbox registers the spec and returns its id.
func (s *LoopbackSandbox) CreateSandbox(_ context.Context, spec SandboxSpec) (string, error) {
	if spec.ID == "" {
		spec.ID = "sbx-" + uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[spec.ID] = spec
	return spec.ID, nil
}

// Exec pretends the command ran instantly.
func (s *LoopbackSandbox) Exec(_ context.Context, sandboxID, cmd string) (ExecResult, error) {
	s.mu.Lock()
	_, ok := s.active[sandboxID]
	s.mu.Unlock()
	if !ok {
		return ExecResult{}, fmt.Errorf("sandbox %s not found", sandboxID)
	}
	return ExecResult{Stdout: "dry-run: " + cmd, Duration: time.Millisecond}, nil
}

// RemoveSandbox forgets the sandbox.
func (s *LoopbackSandbox) RemoveSandbox(_ context.Context, sandboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sandboxID)
	return nil
}

// #endregion loopback-sandbox

// #region loopback-rollback

// LoopbackRollback stores snapshots as opaque descriptors in memory.
type LoopbackRollback struct {
	mu        sync.Mutex
	snapshots map[string]string
}

// NewLoopbackRollback creates an in-memory snapshot store.
func NewLoopbackRollback() *LoopbackRollback {
	return &LoopbackRollback{snapshots: make(map[string]string)}
}

// CreateSnapshot records the descriptor under a fresh id.
func (r *LoopbackRollback) CreateSnapshot(_ context.Context, descriptor string) (string, error) {
	id := "snap-" + uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[id] = descriptor
	return id, nil
}

// Rollback succeeds when the snapshot exists.
func (r *LoopbackRollback) Rollback(_ context.Context, snapshotID string) (RollbackResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snapshots[snapshotID]; !ok {
		return RollbackResult{}, fmt.Errorf("snapshot %s not found", snapshotID)
	}
	return RollbackResult{Success: true}, nil
}

// DeleteSnapshot forgets the snapshot. Deleting a missing snapshot is not
// an error; the success path and the reject path both delete.
func (r *LoopbackRollback) DeleteSnapshot(_ context.Context, snapshotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, snapshotID)
	return nil
}

// #endregion loopback-rollback
