package broadphase

import "github.com/qrigid/engine/geom"

// Refit walks every leaf whose tight box no longer fits inside its cached
// fattened box, re-fattening and re-inserting it (§4.3's per-tick refit
// pass). Callers obtain new tight boxes via tightBoxes, keyed by EntryID;
// entries absent from the map are left untouched.
func (t *Tree[T]) Refit(tightBoxes map[EntryID]geom.BoundingBox) {
	for id, box := range tightBoxes {
		if id < 0 || int(id) >= len(t.entries) || !t.entries[id].alive {
			continue
		}
		t.Move(id, box)
	}
	t.revalidate(t.root)
}

// revalidate rebuilds any subtree whose bounding volume has grown beyond
// RevalidateFactor times its cached reasonableVolume, guarding against
// SAH quality decaying as incremental inserts/removes accumulate (§4.3
// "bounds drift").
func (t *Tree[T]) revalidate(n nodeIndex) {
	if n == nullNode || t.nodes[n].isLeaf() {
		return
	}
	vol := t.nodes[n].box.Volume()
	rv := t.nodes[n].reasonableVolume
	if !rv.AeqZero() && vol > rv.SafeMul(t.RevalidateFactor) {
		t.rebuildSubtree(n)
		return
	}
	t.revalidate(t.nodes[n].child1)
	t.revalidate(t.nodes[n].child2)
}

// rebuildSubtree collects every leaf under n and re-inserts them via a
// fresh top-down SAH-ish median-split build, replacing n in its parent.
func (t *Tree[T]) rebuildSubtree(n nodeIndex) {
	leaves := t.collectLeaves(n, nil)
	parent := t.nodes[n].parent
	t.freeSubtree(n)
	newRoot := t.buildTopDown(leaves)
	if parent == nullNode {
		t.root = newRoot
		t.nodes[newRoot].parent = nullNode
	} else {
		if t.nodes[parent].child1 == n {
			t.nodes[parent].child1 = newRoot
		} else {
			t.nodes[parent].child2 = newRoot
		}
		t.nodes[newRoot].parent = parent
		t.fixupAncestors(parent)
	}
}

func (t *Tree[T]) collectLeaves(n nodeIndex, out []nodeIndex) []nodeIndex {
	if n == nullNode {
		return out
	}
	if t.nodes[n].isLeaf() {
		return append(out, n)
	}
	out = t.collectLeaves(t.nodes[n].child1, out)
	out = t.collectLeaves(t.nodes[n].child2, out)
	return out
}

// freeSubtree returns every internal node under (and including) n to the
// free list, except leaves, which are left intact for reuse by
// buildTopDown.
func (t *Tree[T]) freeSubtree(n nodeIndex) {
	if n == nullNode || t.nodes[n].isLeaf() {
		return
	}
	t.freeSubtree(t.nodes[n].child1)
	t.freeSubtree(t.nodes[n].child2)
	t.freeNodeIdx(n)
}

// buildTopDown builds a balanced BVH over the given leaves by recursively
// splitting along the axis of greatest extent at the median, bottom-up
// merge of the resulting pairs. With 0 or 1 leaves it returns trivially.
func (t *Tree[T]) buildTopDown(leaves []nodeIndex) nodeIndex {
	if len(leaves) == 0 {
		return nullNode
	}
	if len(leaves) == 1 {
		t.nodes[leaves[0]].parent = nullNode
		return leaves[0]
	}
	axis := t.widestAxis(leaves)
	t.sortByAxis(leaves, axis)
	mid := len(leaves) / 2
	left := t.buildTopDown(leaves[:mid])
	right := t.buildTopDown(leaves[mid:])

	parent := t.allocNode()
	box := geom.Merge(t.nodes[left].box, t.nodes[right].box)
	h1, h2 := t.nodes[left].height, t.nodes[right].height
	height := h1 + 1
	if h2 > h1 {
		height = h2 + 1
	}
	t.nodes[parent] = node{
		parent: nullNode, child1: left, child2: right,
		box: box, height: height, reasonableVolume: box.Volume(),
	}
	t.nodes[left].parent = parent
	t.nodes[right].parent = parent
	return parent
}

func (t *Tree[T]) widestAxis(leaves []nodeIndex) int {
	box := t.nodes[leaves[0]].box
	for _, n := range leaves[1:] {
		box = geom.Merge(box, t.nodes[n].box)
	}
	ext := box.Max.Sub(box.Min)
	axis := 0
	widest := ext.X
	if ext.Y > widest {
		axis, widest = 1, ext.Y
	}
	if ext.Z > widest {
		axis = 2
	}
	return axis
}

func (t *Tree[T]) sortByAxis(leaves []nodeIndex, axis int) {
	key := func(n nodeIndex) int64 {
		c := t.nodes[n].box.Center()
		switch axis {
		case 0:
			return int64(c.X.Raw())
		case 1:
			return int64(c.Y.Raw())
		default:
			return int64(c.Z.Raw())
		}
	}
	// Insertion sort: leaf counts per revalidated subtree are small, and a
	// stable simple sort keeps iteration order deterministic (§2 determinism
	// contract) without pulling in sort.Slice's reflection-based comparator.
	for i := 1; i < len(leaves); i++ {
		v := leaves[i]
		kv := key(v)
		j := i - 1
		for j >= 0 && key(leaves[j]) > kv {
			leaves[j+1] = leaves[j]
			j--
		}
		leaves[j+1] = v
	}
}
