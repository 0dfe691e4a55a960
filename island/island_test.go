package island

import (
	"testing"

	"github.com/qrigid/engine/fixed"
)

func newTestGraph() *Graph {
	return NewGraph(DefaultConfig())
}

// TestChainMergesInAtMostNMinusOneAdditions asserts §8's law: a chain of N
// connected bodies in one island merges to a single island after ≤ N-1
// connection additions, regardless of addition order.
func TestChainMergesInAtMostNMinusOneAdditions(t *testing.T) {
	const n = 8
	g := newTestGraph()
	for i := 0; i < n; i++ {
		g.AddMember(MemberID(i))
	}
	// Add chain connections out of order: odd indices first, then even.
	order := []int{1, 3, 5, 0, 2, 4, 6}
	for i, idx := range order {
		g.AddConnection(MemberID(idx), MemberID(idx+1))
		root := g.islandOf(MemberID(0))
		allSame := true
		for j := 0; j < n; j++ {
			if g.islandOf(MemberID(j)) != root {
				allSame = false
				break
			}
		}
		if allSame {
			if i+1 > n-1 {
				t.Fatalf("chain merged into one island after %d additions, want <= %d", i+1, n-1)
			}
			return
		}
	}
	t.Fatalf("chain of %d bodies never merged into a single island after %d additions", n, len(order))
}

// TestCandidateCountNeverExceedsMemberCount asserts §8's per-island
// invariant after a mix of adds, removes, and candidacy updates.
func TestCandidateCountNeverExceedsMemberCount(t *testing.T) {
	g := newTestGraph()
	for i := 0; i < 6; i++ {
		g.AddMember(MemberID(i))
	}
	for i := 0; i < 5; i++ {
		g.AddConnection(MemberID(i), MemberID(i+1))
	}
	// Drive every member below threshold long enough to become a candidate.
	for tick := 0; tick < 10; tick++ {
		for i := 0; i < 6; i++ {
			g.UpdateMember(MemberID(i), 0, fixed.FromFloat64(0.1))
		}
		mc := g.MemberCount(MemberID(0))
		cc := g.CandidateCount(MemberID(0))
		if cc > mc {
			t.Fatalf("tick %d: candidate count %d exceeds member count %d", tick, cc, mc)
		}
	}
	// Remove a member mid-stream and check the invariant still holds.
	g.RemoveMember(MemberID(3))
	mc := g.MemberCount(MemberID(0))
	cc := g.CandidateCount(MemberID(0))
	if cc > mc {
		t.Fatalf("after removal: candidate count %d exceeds member count %d", cc, mc)
	}
}

// TestIslandSplitsWhenConnectionRemoved exercises §8 scenario 6: a chain
// A-B-C where removing B-C isolates {C} into its own island within the
// bounded number of ticks the split-fraction config implies.
func TestIslandSplitsWhenConnectionRemoved(t *testing.T) {
	g := newTestGraph()
	a, b, c := MemberID(1), MemberID(2), MemberID(3)
	g.AddMember(a)
	g.AddMember(b)
	g.AddMember(c)
	g.AddConnection(a, b)
	bc := g.AddConnection(b, c)

	if g.islandOf(a) != g.islandOf(c) {
		t.Fatal("expected a, b, c to start in the same island")
	}

	g.RemoveConnection(bc)

	maxTicks := 1
	if g.Config.SplitFraction.AeqZero() {
		maxTicks = 1
	} else {
		// ceil(1 / fraction), matching §8's "within ceil(1/max_split_attempts_fraction) ticks".
		maxTicks = int(fixed.One.SafeDiv(g.Config.SplitFraction).Int()) + 1
	}

	split := false
	for i := 0; i < maxTicks; i++ {
		g.ProcessSplits()
		if g.islandOf(a) != g.islandOf(c) {
			split = true
			break
		}
	}
	if !split {
		t.Fatalf("expected {c} to split off within %d ticks", maxTicks)
	}
	if g.islandOf(a) != g.islandOf(b) {
		t.Error("expected a and b to remain in the same island after the split")
	}
}

// TestRemoveConnectionSurvivesSliceGrowth guards against a regression where
// AddConnection handed out a pointer into a plain growable []Connection:
// once enough later AddConnection calls forced that slice to reallocate,
// an earlier call's returned pointer pointed at stale backing memory and
// RemoveConnection's pointer-identity match silently stopped finding it.
// This captures a connection early, then adds far more connections than
// any small initial slice capacity could hold without reallocating, and
// confirms the early connection can still be removed and still splits its
// island.
func TestRemoveConnectionSurvivesSliceGrowth(t *testing.T) {
	g := newTestGraph()
	a, b := MemberID(1), MemberID(2)
	g.AddMember(a)
	g.AddMember(b)
	ab := g.AddConnection(a, b)

	for i := 0; i < 200; i++ {
		x, y := MemberID(1000+i), MemberID(2000+i)
		g.AddMember(x)
		g.AddMember(y)
		g.AddConnection(x, y)
	}

	if g.islandOf(a) != g.islandOf(b) {
		t.Fatal("expected a, b to still be in the same island before removal")
	}

	g.RemoveConnection(ab)

	maxTicks := int(fixed.One.SafeDiv(g.Config.SplitFraction).Int()) + 1
	split := false
	for i := 0; i < maxTicks; i++ {
		g.ProcessSplits()
		if g.islandOf(a) != g.islandOf(b) {
			split = true
			break
		}
	}
	if !split {
		t.Fatal("expected a and b to split after removing their only connection, even after many later AddConnection calls")
	}
}

// TestDeactivationStateMachine exercises the Active/Inactive transitions
// and the wake-on-impulse rule.
func TestDeactivationStateMachine(t *testing.T) {
	g := newTestGraph()
	a, b := MemberID(1), MemberID(2)
	g.AddMember(a)
	g.AddMember(b)
	g.AddConnection(a, b)

	if !g.IsActive(a) {
		t.Fatal("expected island to start active")
	}

	// Drive both members below threshold for long enough to become
	// candidates, then sweep.
	for i := 0; i < 10; i++ {
		g.UpdateMember(a, 0, fixed.FromFloat64(0.1))
		g.UpdateMember(b, 0, fixed.FromFloat64(0.1))
	}
	g.ProcessDeactivation()
	if g.IsActive(a) {
		t.Fatal("expected island to deactivate once every member is a candidate")
	}

	// Any wake event reactivates the whole island.
	g.Wake(b)
	if !g.IsActive(a) {
		t.Error("expected waking b to reactivate a's (shared) island")
	}
}

// TestEmptyIslandReclaimed exercises §4.8's "island corruption (orphaned,
// zero-member)" sweep reclaim.
func TestEmptyIslandReclaimed(t *testing.T) {
	g := newTestGraph()
	a := MemberID(1)
	g.AddMember(a)
	g.RemoveMember(a)
	g.ProcessDeactivation()
	if len(g.freeIslands) == 0 {
		t.Error("expected the now-empty island to be reclaimed into the free pool")
	}
}
