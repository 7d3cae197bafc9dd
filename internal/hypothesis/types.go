package hypothesis

import "time"

// #region type-enum

// Type identifies the kind of experiment a hypothesis proposes.
type Type string

const (
	TypeProviderComparison   Type = "provider_comparison"
	TypeStrategyOptimization Type = "strategy_optimization"
	TypeCapabilityDiscovery  Type = "capability_discovery"
	TypeTransferLearning     Type = "transfer_learning"
	TypeAdversarialProbe     Type = "adversarial_probe"
	TypeMutationExperiment   Type = "mutation_experiment"
	TypeCrossDomain          Type = "cross_domain"
)

// AllTypes lists every hypothesis type in dispatch order.
var AllTypes = []Type{
	TypeProviderComparison,
	TypeStrategyOptimization,
	TypeCapabilityDiscovery,
	TypeTransferLearning,
	TypeAdversarialProbe,
	TypeMutationExperiment,
	TypeCrossDomain,
}

// #endregion type-enum

// #region status-enum

// Status is the lifecycle state of a hypothesis.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTesting   Status = "testing"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusValidated || s == StatusRejected || s == StatusCancelled
}

// #endregion status-enum

// #region level-enum

// Level grades expected impact and safety risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Score maps a level onto [0,1] for ranking arithmetic.
func (l Level) Score() float64 {
	switch l {
	case LevelHigh:
		return 1.0
	case LevelMedium:
		return 0.6
	default:
		return 0.3
	}
}

// Boosted returns the level one tier up (high stays high).
func (l Level) Boosted() Level {
	switch l {
	case LevelLow:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// #endregion level-enum

// #region payload

// Payload is the type-specific experiment configuration.
// Exactly one concrete payload type exists per hypothesis type that needs one;
// hypotheses of other types carry a nil payload.
type Payload interface {
	payloadType() Type
}

// MutationConfig parameterizes a mutation experiment.
type MutationConfig struct {
	BasePrompt   string
	MutationType string // "expand" | "simplify" | "challenge"
}

func (MutationConfig) payloadType() Type { return TypeMutationExperiment }

// AdversarialConfig parameterizes an adversarial probe.
type AdversarialConfig struct {
	Challenger string
	Defender   string
	ProbeType  string
}

func (AdversarialConfig) payloadType() Type { return TypeAdversarialProbe }

// #endregion payload

// #region result

// Result is the normalized outcome of one experiment run.
// It is attached to the hypothesis exactly once, together with the terminal
// status transition, and never mutated afterwards.
type Result struct {
	Success         bool
	Findings        string
	Metrics         map[string]float64
	Confidence      float64 // [0,1]
	ShouldIntegrate bool
	Reasoning       string
	Timestamp       time.Time

	// References to infrastructure used during the run, if any.
	SandboxID  string
	SnapshotID string
	RiskLevel  string
}

// #endregion result

// #region hypothesis

// Hypothesis is a testable proposition about a capability or knowledge gap.
type Hypothesis struct {
	ID             string
	Type           Type
	Description    string
	TargetArea     string // doubles as the bandit arm's domain component
	ExpectedImpact Level
	SafetyRisk     Level
	EstimatedCost  float64
	GeneratedAt    time.Time
	Status         Status
	Payload        Payload
	Result         *Result
}

// ArmID returns the bandit arm key for this hypothesis.
func (h *Hypothesis) ArmID() string {
	return string(h.Type) + ":" + h.TargetArea
}

// #endregion hypothesis
