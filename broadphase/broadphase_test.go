package broadphase

import (
	"sort"
	"testing"

	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/parallel"
)

func box(cx, cy, cz, half float64) geom.BoundingBox {
	c := geom.V3(fixed.FromFloat64(cx), fixed.FromFloat64(cy), fixed.FromFloat64(cz))
	h := fixed.FromFloat64(half)
	return geom.FromCenterHalfExtents(c, geom.V3(h, h, h), 0)
}

func sortedPairs(ps []Pair) []Pair {
	out := append([]Pair(nil), ps...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// TestTreePairsMatchBruteForce checks the §8 invariant that every
// intersecting pair is emitted exactly once, against an O(n^2) oracle.
func TestTreePairsMatchBruteForce(t *testing.T) {
	tree := NewTree[int]()
	bf := NewBruteForce[int]()
	boxes := []geom.BoundingBox{
		box(0, 0, 0, 1),
		box(1.5, 0, 0, 1), // overlaps box 0
		box(10, 0, 0, 1),  // isolated
		box(10.5, 0.5, 0, 1),
		box(-5, -5, -5, 0.5),
	}
	ids := make([]EntryID, len(boxes))
	bfIDs := make([]EntryID, len(boxes))
	for i, b := range boxes {
		ids[i] = tree.Insert(b, i)
		bfIDs[i] = bf.Insert(b, i)
	}
	// Remap brute-force ids (assigned independently) onto tree ids so pairs
	// compare directly: both trackers insert in the same order, so their ids
	// already coincide positionally — verify that assumption holds.
	for i := range ids {
		if ids[i] != bfIDs[i] {
			t.Fatalf("id assignment diverged at %d: tree=%d bf=%d", i, ids[i], bfIDs[i])
		}
	}

	got := sortedPairs(tree.Pairs())
	want := sortedPairs(bf.Pairs())
	if len(got) != len(want) {
		t.Fatalf("pair count = %d, want %d (got=%v want=%v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTreePairsExactlyOnce(t *testing.T) {
	tree := NewTree[int]()
	for i := 0; i < 40; i++ {
		x := float64(i%5) * 0.9
		y := float64(i/5) * 0.9
		tree.Insert(box(x, y, 0, 1), i)
	}
	seen := map[Pair]int{}
	for _, p := range tree.Pairs() {
		seen[p]++
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("pair %v emitted %d times, want 1", p, n)
		}
	}
}

func TestTreeInsertRemoveMove(t *testing.T) {
	tree := NewTree[string]()
	a := tree.Insert(box(0, 0, 0, 1), "a")
	b := tree.Insert(box(5, 0, 0, 1), "b")
	if len(tree.Pairs()) != 0 {
		t.Fatal("expected no overlap before move")
	}
	tree.Move(a, box(5, 0, 0, 1))
	if len(tree.Pairs()) != 1 {
		t.Fatal("expected overlap after move")
	}
	tree.Remove(b)
	if got := tree.Pairs(); len(got) != 0 {
		t.Fatalf("expected no pairs after remove, got %v", got)
	}
}

func TestTreeRefitRevalidates(t *testing.T) {
	tree := NewTree[int]()
	tree.RevalidateFactor = fixed.FromFloat64(1.01)
	ids := make([]EntryID, 0, 20)
	for i := 0; i < 20; i++ {
		ids = append(ids, tree.Insert(box(float64(i), 0, 0, 0.4), i))
	}
	moves := map[EntryID]geom.BoundingBox{}
	for _, id := range ids {
		moves[id] = box(float64(id)*3, 100, 0, 0.4)
	}
	tree.Refit(moves)
	// After a large-scale refit every leaf should report its own new box.
	for _, id := range ids {
		b := tree.Box(id)
		if !b.Contains(moves[id]) {
			t.Errorf("entry %d box does not contain its moved tight box", id)
		}
	}
}

func TestTreeRayCastRejectsNonPositiveMaxT(t *testing.T) {
	tree := NewTree[int]()
	tree.Insert(box(0, 0, 0, 1), 0)
	if _, err := tree.RayCast(geom.V3(fixed.FromFloat64(-5), 0, 0), geom.V3(fixed.One, 0, 0), 0, nil); err == nil {
		t.Error("expected error for non-positive maxT")
	}
}

func TestTreeRayCastHitsLeaf(t *testing.T) {
	tree := NewTree[int]()
	id := tree.Insert(box(5, 0, 0, 1), 42)
	hits, err := tree.RayCast(geom.V3(0, 0, 0), geom.V3(fixed.One, 0, 0), fixed.FromFloat64(20), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, h := range hits {
		if h.Entry == id {
			found = true
		}
	}
	if !found {
		t.Error("expected ray to hit inserted box")
	}
}

func TestGrid2DSortAndSweepMatchesBruteForce(t *testing.T) {
	grid := NewGrid2DSortAndSweep[int](0, 2, fixed.FromFloat64(2.0))
	bf := NewBruteForce[int]()
	boxes := []geom.BoundingBox{
		box(0, 0, 0, 1),
		box(1.5, 0, 0, 1),
		box(10, 0, 0, 1),
		box(10.9, 0, 0, 1),
		box(-20, 0, 3, 0.5),
	}
	for i, b := range boxes {
		grid.Insert(b, i)
		bf.Insert(b, i)
	}
	got := sortedPairs(grid.Pairs())
	want := sortedPairs(bf.Pairs())
	if len(got) != len(want) {
		t.Fatalf("grid pair count = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("grid pair %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParallelPairsMatchesSerial(t *testing.T) {
	tree := NewTree[int]()
	for i := 0; i < 64; i++ {
		x := float64(i%8) * 0.9
		y := float64(i/8) * 0.9
		tree.Insert(box(x, y, 0, 1), i)
	}
	serial := sortedPairs(tree.Pairs())
	pool := parallel.NewWorkerPool(4)
	par := sortedPairs(tree.ParallelPairs(pool, parallel.SplitDepth(4)))
	if len(serial) != len(par) {
		t.Fatalf("parallel pair count = %d, want %d", len(par), len(serial))
	}
	for i := range serial {
		if serial[i] != par[i] {
			t.Errorf("parallel pair %d = %v, want %v", i, par[i], serial[i])
		}
	}
}

func TestParallelRefitMatchesSerial(t *testing.T) {
	build := func() (*Tree[int], []EntryID) {
		tree := NewTree[int]()
		ids := make([]EntryID, 0, 32)
		for i := 0; i < 32; i++ {
			ids = append(ids, tree.Insert(box(float64(i), 0, 0, 0.4), i))
		}
		return tree, ids
	}
	serialTree, serialIDs := build()
	parTree, parIDs := build()

	moves := func(ids []EntryID) map[EntryID]geom.BoundingBox {
		m := map[EntryID]geom.BoundingBox{}
		for i, id := range ids {
			m[id] = box(float64(i)*1.3, 1, 0, 0.4)
		}
		return m
	}
	serialTree.Refit(moves(serialIDs))
	pool := parallel.NewWorkerPool(4)
	parTree.ParallelRefit(pool, moves(parIDs), parallel.SplitDepth(4))

	serialPairs := sortedPairs(serialTree.Pairs())
	parPairs := sortedPairs(parTree.Pairs())
	if len(serialPairs) != len(parPairs) {
		t.Fatalf("parallel refit pair count = %d, want %d", len(parPairs), len(serialPairs))
	}
	for i := range serialPairs {
		if serialPairs[i] != parPairs[i] {
			t.Errorf("parallel refit pair %d = %v, want %v", i, parPairs[i], serialPairs[i])
		}
	}
}
