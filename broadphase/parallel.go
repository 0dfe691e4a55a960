package broadphase

import (
	"unsafe"

	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/parallel"
)

// splitNodes walks down from the root collecting the set of subtree roots
// at depth (or shallower, at leaves/empty subtrees), giving each worker a
// disjoint slice of the tree to refit/emit without coordination (§4.3
// "multithreaded variant").
func (t *Tree[T]) splitNodes(depth int) []nodeIndex {
	if t.root == nullNode {
		return nil
	}
	frontier := []nodeIndex{t.root}
	for d := 0; d < depth; d++ {
		next := make([]nodeIndex, 0, len(frontier)*2)
		splitAny := false
		for _, n := range frontier {
			if t.nodes[n].isLeaf() {
				next = append(next, n)
				continue
			}
			next = append(next, t.nodes[n].child1, t.nodes[n].child2)
			splitAny = true
		}
		frontier = next
		if !splitAny {
			break
		}
	}
	return frontier
}

// ParallelRefit refits disjoint subtrees concurrently via pool, falling
// back to a single-threaded Refit when the tree is too shallow to split.
// tightBoxes is read-only from every worker goroutine; each worker only
// mutates nodes within its own subtree, so no locking is required there.
// Revalidation of the whole tree still runs single-threaded afterward,
// since rebuilds can touch ancestors shared across subtrees.
func (t *Tree[T]) ParallelRefit(pool parallel.Pool, tightBoxes map[EntryID]geom.BoundingBox, splitDepth int) {
	roots := t.splitNodes(splitDepth)
	if len(roots) <= 1 {
		t.Refit(tightBoxes)
		return
	}
	pool.ParallelFor(len(roots), func(i int) {
		t.refitSubtreeLeaves(roots[i], tightBoxes)
	})
	for _, r := range roots {
		t.fixupAncestors(t.nodes[r].parent)
	}
	t.revalidate(t.root)
}

func (t *Tree[T]) refitSubtreeLeaves(n nodeIndex, tightBoxes map[EntryID]geom.BoundingBox) {
	if n == nullNode {
		return
	}
	if t.nodes[n].isLeaf() {
		if box, ok := tightBoxes[t.nodes[n].entry]; ok && !t.nodes[n].box.Contains(box) {
			t.nodes[n].box = box.Expanded(t.Margin)
		}
		return
	}
	t.refitSubtreeLeaves(t.nodes[n].child1, tightBoxes)
	t.refitSubtreeLeaves(t.nodes[n].child2, tightBoxes)
	t.nodes[n].box = geom.Merge(t.nodes[t.nodes[n].child1].box, t.nodes[t.nodes[n].child2].box)
}

// pairSliceHeaderSize is the size of a []Pair slice header (pointer, len,
// cap) on this platform, used to derive parallelSlotStride below.
var pairSliceHeaderSize = int(unsafe.Sizeof([]Pair(nil)))

// parallelSlotStride returns how many []Pair-header-sized slots fit in one
// cache line, via parallel.CacheLineSize(). ParallelPairs gives each
// worker's result slot this much room in the backing scratch array instead
// of packing them contiguously, so two workers' slots never land in the
// same cache line and false-share on every write during the fan-out.
func parallelSlotStride() int {
	n := parallel.CacheLineSize() / pairSliceHeaderSize
	if n < 1 {
		n = 1
	}
	return n
}

// ParallelPairs emits the same pair set as Pairs, but computes the
// self-pairs of each top-level split subtree concurrently; the cross terms
// between split subtrees are resolved afterward, single-threaded, since the
// number of subtree-pairs is small (quadratic in worker count, not in
// entry count) and each comparison only reads shared node state.
func (t *Tree[T]) ParallelPairs(pool parallel.Pool, splitDepth int) []Pair {
	if t.root == nullNode {
		return nil
	}
	roots := t.splitNodes(splitDepth)
	if len(roots) <= 1 {
		return t.Pairs()
	}
	stride := parallelSlotStride()
	perRoot := make([][]Pair, len(roots)*stride)
	pool.ParallelFor(len(roots), func(i int) {
		perRoot[i*stride] = t.selfPairs(roots[i], nil)
	})
	var out []Pair
	for i := 0; i < len(roots); i++ {
		out = append(out, perRoot[i*stride]...)
	}
	for i := 0; i < len(roots); i++ {
		for j := i + 1; j < len(roots); j++ {
			out = t.crossPairs(roots[i], roots[j], out)
		}
	}
	return out
}
