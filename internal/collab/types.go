// Package collab defines the contracts the exploration engine consumes from
// its external collaborators: generation backend, knowledge store, vector
// store, safety assessor, sandbox runtime and rollback store. The engine
// never depends on concrete implementations; cmd wiring injects either the
// gRPC-backed clients or the loopback fakes.
package collab

import (
	"context"
	"time"
)

// #region generation

// GenerateRequest is one call to the generation backend.
type GenerateRequest struct {
	Prompt    string
	Provider  string
	TaskType  string
	SessionID string
}

// Generator abstracts the LLM generation backend.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// #endregion generation

// #region knowledge-store

// GoalStats summarizes outcomes for one goal.
type GoalStats struct {
	SuccessRate float64
	Attempts    int
}

// ProviderProfile describes one provider's observed task history.
type ProviderProfile struct {
	ID          string
	TaskHistory []string
	Metrics     map[string]float64
}

// KnowledgeStore abstracts the knowledge graph queries the generators need.
type KnowledgeStore interface {
	ProviderRecommendations(ctx context.Context, taskType string) ([]string, error)
	ProviderProfile(ctx context.Context, id string) (ProviderProfile, error)
	GoalStatistics(ctx context.Context) (map[string]GoalStats, error)
}

// #endregion knowledge-store

// #region vector-store

// Document is one vector store search hit.
type Document struct {
	Content    string
	Metadata   map[string]string
	Similarity float64
}

// VectorStore abstracts semantic search and storage of findings.
type VectorStore interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
	Add(ctx context.Context, text string, metadata map[string]string) error
}

// #endregion vector-store

// #region safety

// ActionDescriptor describes a proposed experiment for risk assessment.
type ActionDescriptor struct {
	ActionID     string
	Kind         string
	Description  string
	TargetArea   string
	DeclaredRisk string
}

// Assessment is the safety collaborator's verdict on a proposed action.
type Assessment struct {
	ActionID              string
	RiskLevel             string
	BlockingIssues        []string
	Warnings              []string
	RequiresHumanApproval bool
	RequiresRollbackPlan  bool
	RequiresSandbox       bool
	MaxExecutionTime      time.Duration
	MaxMemoryMB           int
	MaxCPUPercent         int
}

// Blocked reports whether the assessment forbids execution outright.
func (a Assessment) Blocked() bool {
	return len(a.BlockingIssues) > 0
}

// Safety abstracts the risk assessment engine and its rate/quota tracking.
type Safety interface {
	Assess(ctx context.Context, action ActionDescriptor) (Assessment, error)
	StartAction(ctx context.Context, assessment Assessment) error
	CompleteAction(ctx context.Context, assessment Assessment) error
}

// #endregion safety

// #region sandbox

// SandboxSpec requests an isolated execution context with resource ceilings.
type SandboxSpec struct {
	ID            string
	Timeout       time.Duration
	MaxMemoryMB   int
	MaxCPUPercent int
	Env           map[string]string
}

// ExecResult is the outcome of one command inside a sandbox.
type ExecResult struct {
	Stdout        string
	Stderr        string
	Duration      time.Duration
	ResourceUsage map[string]float64
}

// SandboxManager abstracts the container runtime.
type SandboxManager interface {
	CreateSandbox(ctx context.Context, spec SandboxSpec) (string, error)
	Exec(ctx context.Context, sandboxID, cmd string) (ExecResult, error)
	RemoveSandbox(ctx context.Context, sandboxID string) error
}

// #endregion sandbox

// #region rollback

// RollbackResult reports what a rollback restored.
type RollbackResult struct {
	Success       bool
	FilesRestored []string
}

// RollbackStore abstracts the snapshot/rollback collaborator.
type RollbackStore interface {
	CreateSnapshot(ctx context.Context, descriptor string) (string, error)
	Rollback(ctx context.Context, snapshotID string) (RollbackResult, error)
	DeleteSnapshot(ctx context.Context, snapshotID string) error
}

// #endregion rollback
