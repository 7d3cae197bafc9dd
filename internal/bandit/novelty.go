package bandit

import "sync"

// #region novelty-tracker

// noveltyDecay is applied to a domain's score on every pull against it.
const noveltyDecay = 0.95

// NoveltyTracker holds externally-supplied novelty scores per domain.
// Scores live in [0,1]; unseen domains score 0.
type NoveltyTracker struct {
	mu     sync.Mutex
	scores map[string]float64
}

// NewNoveltyTracker creates an empty tracker.
func NewNoveltyTracker() *NoveltyTracker {
	return &NoveltyTracker{scores: make(map[string]float64)}
}

// Set records a novelty score for a domain, clamped to [0,1].
func (n *NoveltyTracker) Set(domain string, score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scores[domain] = score
}

// Get returns the current score for a domain (0 if unknown).
func (n *NoveltyTracker) Get(domain string) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scores[domain]
}

// DecayOnPull attenuates a domain's novelty after an experiment ran there.
func (n *NoveltyTracker) DecayOnPull(domain string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.scores[domain]; ok {
		n.scores[domain] = s * noveltyDecay
	}
}

// Max returns the highest score currently tracked.
func (n *NoveltyTracker) Max() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	max := 0.0
	for _, s := range n.scores {
		if s > max {
			max = s
		}
	}
	return max
}

// All returns a copy of the score map.
func (n *NoveltyTracker) All() map[string]float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]float64, len(n.scores))
	for d, s := range n.scores {
		out[d] = s
	}
	return out
}

// #endregion novelty-tracker
