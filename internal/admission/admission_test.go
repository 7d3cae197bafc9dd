package admission

import (
	"fmt"
	"sync"
	"testing"

	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

func newHyp() *hypothesis.Hypothesis {
	return hypothesis.New(hypothesis.TypeCapabilityDiscovery, "probe", "coding",
		hypothesis.LevelLow, hypothesis.LevelLow, 1.0)
}

func TestAdmitUpToLimit(t *testing.T) {
	c := NewController(2)

	if err := c.Admit(newHyp()); err != nil {
		t.Fatal(err)
	}
	if err := c.Admit(newHyp()); err != nil {
		t.Fatal(err)
	}
	if c.HasCapacity() {
		t.Fatal("expected no capacity at limit")
	}
	if err := c.Admit(newHyp()); err != ErrAtCapacity {
		t.Fatalf("err = %v, want ErrAtCapacity", err)
	}
}

func TestReleaseFreesSlot(t *testing.T) {
	c := NewController(1)
	h := newHyp()
	if err := c.Admit(h); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Release(h.ID)
	if !ok || got.ID != h.ID {
		t.Fatalf("release returned %v, %v", got, ok)
	}
	if !c.HasCapacity() {
		t.Fatal("slot should be free after release")
	}
	if _, ok := c.Release(h.ID); ok {
		t.Fatal("double release must report missing")
	}
}

func TestDuplicateAdmitRejected(t *testing.T) {
	c := NewController(3)
	h := newHyp()
	if err := c.Admit(h); err != nil {
		t.Fatal(err)
	}
	if err := c.Admit(h); err == nil {
		t.Fatal("expected error on duplicate admit")
	}
}

func TestShrinkingLimitDrainsWithoutEviction(t *testing.T) {
	c := NewController(3)
	hyps := []*hypothesis.Hypothesis{newHyp(), newHyp(), newHyp()}
	for _, h := range hyps {
		if err := c.Admit(h); err != nil {
			t.Fatal(err)
		}
	}

	c.SetLimit(1)
	if c.Len() != 3 {
		t.Fatalf("shrink must not evict, len = %d", c.Len())
	}
	if c.HasCapacity() {
		t.Fatal("no capacity while over the new limit")
	}

	c.Release(hyps[0].ID)
	c.Release(hyps[1].ID)
	if c.HasCapacity() {
		t.Fatal("still at the new limit of 1")
	}
	c.Release(hyps[2].ID)
	if !c.HasCapacity() {
		t.Fatal("capacity should return once drained")
	}
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	const limit = 5
	c := NewController(limit)

	var wg sync.WaitGroup
	admitted := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := newHyp()
			h.Description = fmt.Sprintf("candidate %d", i)
			if err := c.Admit(h); err == nil {
				admitted <- h.ID
			}
		}(i)
	}
	wg.Wait()
	close(admitted)

	n := 0
	for range admitted {
		n++
	}
	if n != limit {
		t.Fatalf("admitted %d, want exactly %d", n, limit)
	}
	if c.Len() != limit {
		t.Fatalf("len = %d, want %d", c.Len(), limit)
	}
}
