package broadphase

import "github.com/qrigid/engine/geom"

// Pair is an unordered pair of overlapping entries, A < B by construction
// so equal pairs compare equal regardless of discovery order.
type Pair struct{ A, B EntryID }

// Pairs walks the tree and emits every pair of leaves whose fattened boxes
// overlap, exactly once each (§8 invariant: "every intersecting pair is
// emitted exactly once per tick"). The descent generalizes the classic
// self/cross BVH traversal: a node is tested against itself (recursing into
// both children pairwise) and, for an internal node, its two children are
// cross-tested against each other.
func (t *Tree[T]) Pairs() []Pair {
	var out []Pair
	if t.root == nullNode {
		return out
	}
	out = t.selfPairs(t.root, out)
	return out
}

func (t *Tree[T]) selfPairs(n nodeIndex, out []Pair) []Pair {
	if t.nodes[n].isLeaf() {
		return out
	}
	c1, c2 := t.nodes[n].child1, t.nodes[n].child2
	out = t.selfPairs(c1, out)
	out = t.selfPairs(c2, out)
	out = t.crossPairs(c1, c2, out)
	return out
}

func (t *Tree[T]) crossPairs(a, b nodeIndex, out []Pair) []Pair {
	if !geom.Intersects(t.nodes[a].box, t.nodes[b].box) {
		return out
	}
	leafA, leafB := t.nodes[a].isLeaf(), t.nodes[b].isLeaf()
	switch {
	case leafA && leafB:
		ea, eb := t.nodes[a].entry, t.nodes[b].entry
		if ea < eb {
			return append(out, Pair{ea, eb})
		}
		return append(out, Pair{eb, ea})
	case leafA:
		out = t.crossPairs(a, t.nodes[b].child1, out)
		out = t.crossPairs(a, t.nodes[b].child2, out)
	case leafB:
		out = t.crossPairs(t.nodes[a].child1, b, out)
		out = t.crossPairs(t.nodes[a].child2, b, out)
	default:
		// Descend the larger-volume side first, matching the teacher's
		// physics/broad.go preference for shrinking the bigger box sooner.
		if t.nodes[a].box.Volume() > t.nodes[b].box.Volume() {
			out = t.crossPairs(t.nodes[a].child1, b, out)
			out = t.crossPairs(t.nodes[a].child2, b, out)
		} else {
			out = t.crossPairs(a, t.nodes[b].child1, out)
			out = t.crossPairs(a, t.nodes[b].child2, out)
		}
	}
	return out
}
