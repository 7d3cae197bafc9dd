// Package admission bounds how many experiments run concurrently. The
// controller owns the active set; a slot is held from admission until the
// executor's releaser fires, regardless of how the experiment ended.
package admission

import (
	"errors"
	"sync"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// ErrAtCapacity is returned when every slot is taken.
var ErrAtCapacity = errors.New("admission: at capacity")

// #region controller

// Controller tracks in-flight experiments against a concurrency limit.
type Controller struct {
	mu     sync.Mutex
	active map[string]*hypothesis.Hypothesis
	limit  int
}

// NewController creates a controller with the given slot count. Limits <= 0
// are clamped to 1.
func NewController(limit int) *Controller {
	if limit <= 0 {
		limit = 1
	}
	return &Controller{
		active: make(map[string]*hypothesis.Hypothesis),
		limit:  limit,
	}
}

// SetLimit updates the slot count at runtime. Shrinking below the current
// in-flight count never evicts; the excess drains as experiments release.
func (c *Controller) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
}

// #endregion controller

// #region slots

// HasCapacity reports whether at least one slot is free.
func (c *Controller) HasCapacity() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active) < c.limit
}

// Admit claims a slot for h. Admitting an already-active hypothesis is an
// error, as is admitting past the limit.
func (c *Controller) Admit(h *hypothesis.Hypothesis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.active) >= c.limit {
		return ErrAtCapacity
	}
	if _, exists := c.active[h.ID]; exists {
		return errors.New("admission: hypothesis already active")
	}
	c.active[h.ID] = h
	return nil
}

// Release frees the slot held by id and returns the hypothesis it held.
func (c *Controller) Release(id string) (*hypothesis.Hypothesis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.active[id]
	if ok {
		delete(c.active, id)
	}
	return h, ok
}

// #endregion slots

// #region inspect

// Get returns the active hypothesis with the given id.
func (c *Controller) Get(id string) (*hypothesis.Hypothesis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.active[id]
	return h, ok
}

// Active returns the in-flight hypotheses.
func (c *Controller) Active() []*hypothesis.Hypothesis {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*hypothesis.Hypothesis, 0, len(c.active))
	for _, h := range c.active {
		out = append(out, h)
	}
	return out
}

// Len returns the number of held slots.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// #endregion inspect
