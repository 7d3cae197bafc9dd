package engine

import (
	"context"
	"log"
	"time"
)

// #region scheduler

// Run drives exploration rounds on a fixed interval until ctx is cancelled.
// The first round fires after initialDelay so collaborators have time to
// come up. A failed or panicking round is logged and the ticker keeps
// going; the loop must survive anything a round does.
func (e *Engine) Run(ctx context.Context, initialDelay, tickInterval time.Duration) {
	if tickInterval <= 0 {
		tickInterval = 15 * time.Minute
	}

	if initialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialDelay):
		}
	}
	e.safeRound(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.safeRound(ctx)
			e.decayFindings()
		}
	}
}

// safeRound runs one round, containing panics and errors.
func (e *Engine) safeRound(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("exploration round panicked: %v", r)
		}
	}()
	if err := e.RunExplorationRound(ctx); err != nil {
		log.Printf("exploration round failed: %v", err)
	}
}

// #endregion scheduler

// #region maintenance

// Half-life for finding-graph edge weights. Transfer evidence that stops
// being reinforced fades out over a few weeks.
const findingEdgeHalfLifeHours = 336

// decayFindings ages the finding graph so stale edges stop steering the
// cross-domain generator. Best-effort, once per tick.
func (e *Engine) decayFindings() {
	if e.graph == nil {
		return
	}
	deleted, err := e.graph.DecayAll(findingEdgeHalfLifeHours)
	if err != nil {
		log.Printf("finding graph decay failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("finding graph decay pruned %d stale edges", deleted)
	}
}

// #endregion maintenance
