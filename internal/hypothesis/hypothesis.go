package hypothesis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region constructor

// New creates a pending hypothesis with a fresh id.
func New(typ Type, description, targetArea string, impact, risk Level, cost float64) *Hypothesis {
	return &Hypothesis{
		ID:             uuid.NewString(),
		Type:           typ,
		Description:    description,
		TargetArea:     targetArea,
		ExpectedImpact: impact,
		SafetyRisk:     risk,
		EstimatedCost:  cost,
		GeneratedAt:    time.Now().UTC(),
		Status:         StatusPending,
	}
}

// #endregion constructor

// #region transitions

// legalTransitions maps each status to the statuses reachable from it.
// A pending hypothesis can only start testing; testing may fall back to
// pending when an experiment is parked for human approval, and every other
// testing exit is terminal.
var legalTransitions = map[Status][]Status{
	StatusPending: {StatusTesting},
	StatusTesting: {StatusPending, StatusValidated, StatusRejected, StatusCancelled},
}

// Transition moves the hypothesis to next, rejecting illegal moves.
// A terminal status is never overwritten.
func (h *Hypothesis) Transition(next Status) error {
	for _, allowed := range legalTransitions[h.Status] {
		if next == allowed {
			h.Status = next
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s for hypothesis %s", h.Status, next, h.ID)
}

// Finish atomically sets the result and the terminal status.
// The result is set at most once.
func (h *Hypothesis) Finish(next Status, res *Result) error {
	if !next.Terminal() {
		return fmt.Errorf("finish requires a terminal status, got %s", next)
	}
	if h.Result != nil {
		return fmt.Errorf("hypothesis %s already has a result", h.ID)
	}
	if err := h.Transition(next); err != nil {
		return err
	}
	h.Result = res
	return nil
}

// #endregion transitions
