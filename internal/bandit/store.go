package bandit

import (
	"sort"
	"sync"
	"time"
)

// #region arm-store

// ArmStore holds per-arm statistics for the process lifetime.
// Arms are created lazily on first reference. All updates are commutative
// sums, so the final state is independent of the order in which
// concurrently-completing experiments report their outcomes.
type ArmStore struct {
	mu            sync.Mutex
	arms          map[string]*ArmStats
	priorStrength float64
}

// NewArmStore creates an empty store. priorStrength must be > 0 so that
// alpha and beta stay positive; values <= 0 are clamped to 1.
func NewArmStore(priorStrength float64) *ArmStore {
	if priorStrength <= 0 {
		priorStrength = 1
	}
	return &ArmStore{
		arms:          make(map[string]*ArmStats),
		priorStrength: priorStrength,
	}
}

// #endregion arm-store

// #region get

// get returns the stats for armID, creating them lazily. Caller holds mu.
func (s *ArmStore) get(armID string) *ArmStats {
	a, ok := s.arms[armID]
	if !ok {
		a = &ArmStats{
			ArmID: armID,
			Alpha: s.priorStrength,
			Beta:  s.priorStrength,
		}
		s.arms[armID] = a
	}
	return a
}

// Get returns a copy of the stats for armID, creating the arm if needed.
func (s *ArmStore) Get(armID string) ArmStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.get(armID)
}

// #endregion get

// #region update

// Update applies one outcome to its arm. Success increments alpha, failure
// increments beta; reward accumulates into the running total.
func (s *ArmStore) Update(o Outcome) ArmStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.get(o.ArmID)
	a.Pulls++
	a.TotalReward += o.Reward
	if o.Success {
		a.Successes++
		a.Alpha++
	} else {
		a.Failures++
		a.Beta++
	}
	a.LastPulled = time.Now().UTC()
	return *a
}

// #endregion update

// #region aggregates

// TotalPulls returns the sum of pulls across all arms.
func (s *ArmStore) TotalPulls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, a := range s.arms {
		total += a.Pulls
	}
	return total
}

// Snapshot returns copies of all arms, sorted by arm id for stable output.
func (s *ArmStore) Snapshot() []ArmStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ArmStats, 0, len(s.arms))
	for _, a := range s.arms {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArmID < out[j].ArmID })
	return out
}

// Restore seeds the store from persisted stats, typically at startup.
// Rows with non-positive posterior parameters are repaired to the prior.
func (s *ArmStore) Restore(arms []ArmStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range arms {
		cp := a
		if cp.Alpha <= 0 {
			cp.Alpha = s.priorStrength
		}
		if cp.Beta <= 0 {
			cp.Beta = s.priorStrength
		}
		s.arms[cp.ArmID] = &cp
	}
}

// setUCBScore records the last computed UCB score for inspection.
func (s *ArmStore) setUCBScore(armID string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(armID).UCBScore = score
}

// #endregion aggregates
