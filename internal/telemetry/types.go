package telemetry

import "time"

// #region event-types

// EventType enumerates every signal the engine emits.
type EventType string

const (
	EventRoundStarted        EventType = "round_started"
	EventHypothesesGenerated EventType = "hypotheses_generated"
	EventHypothesisSelected  EventType = "hypothesis_selected"
	EventExperimentStarted   EventType = "experiment_started"
	EventExperimentCompleted EventType = "experiment_completed"
	EventExperimentFailed    EventType = "experiment_failed"
	EventApprovalPending     EventType = "approval_pending"
	EventFindingIntegrated   EventType = "finding_integrated"
	EventFindingRejected     EventType = "finding_rejected"
	EventArmUpdated          EventType = "arm_updated"
	EventRollbackExecuted    EventType = "rollback_executed"
	EventCapacityLimit       EventType = "capacity_limit"
	EventArtifactQueued      EventType = "artifact_queued"
	EventArtifactApproved    EventType = "artifact_approved"
	EventArtifactRejected    EventType = "artifact_rejected"
)

// #endregion event-types

// #region event

// Event is one telemetry record. Transport is out of scope; subscribers
// decide where events go (log, sqlite, nothing).
type Event struct {
	Type         EventType
	HypothesisID string
	ArmID        string
	Reason       string
	Fields       map[string]any
	CreatedAt    time.Time
}

// #endregion event
