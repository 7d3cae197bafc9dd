package engine

import (
	"sync"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region ring

const defaultHistoryCap = 1000

// ring is a bounded buffer of finished hypotheses, newest first on read.
// It backs the mutation generator and the stats surface without letting
// memory grow with uptime.
type ring struct {
	mu    sync.Mutex
	items []*hypothesis.Hypothesis
	next  int
	full  bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &ring{items: make([]*hypothesis.Hypothesis, capacity)}
}

// add records one finished hypothesis, evicting the oldest when full.
func (r *ring) add(h *hypothesis.Hypothesis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = h
	r.next++
	if r.next == len(r.items) {
		r.next = 0
		r.full = true
	}
}

// Recent returns up to n hypotheses, newest first.
func (r *ring) Recent(n int) []*hypothesis.Hypothesis {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.items)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]*hypothesis.Hypothesis, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.items)) % len(r.items)
		out = append(out, r.items[idx])
	}
	return out
}

// len reports how many items the ring holds.
func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.items)
	}
	return r.next
}

// #endregion ring
