// Package broadphase implements the incremental bounding-volume hierarchy
// of spec §4.3: per-tick refit + overlap emit, SAH-guided insertion and
// removal, ray/box/sphere queries, a Grid2DSortAndSweep alternative, and a
// parallel refit/emit variant. Node pooling is grounded on the design note
// "Unsafe resource pools" (§9); the pair-emission descent generalizes the
// teacher's O(n^2) physics/broad.go sweep, kept (adapted) as BruteForce for
// small-N fallback use.
package broadphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// EntryID identifies a leaf entry in a Tree. IDs start at 0; nullEntry
// (-1) marks "no entry".
type EntryID int32

const nullEntry EntryID = -1
const nullNode nodeIndex = -1

type nodeIndex int32

type node struct {
	parent, child1, child2 nodeIndex
	box                    geom.BoundingBox
	reasonableVolume       fixed.Fix64 // cached volume at last full (re)build, for refit revalidation
	height                 int32
	entry                  EntryID // valid only when child1 == nullNode (leaf)
}

func (n *node) isLeaf() bool { return n.child1 == nullNode }

// Entry is the opaque handle described in spec §3: a bounding box plus a
// back-pointer (Owner) to its owning collidable. T is the caller's
// collidable-reference type (an *entity.Entity, a shape index, ...).
type Entry[T any] struct {
	Owner T
	node  nodeIndex
	alive bool
}

// Tree is an incremental BVH over Entry[T] leaves.
type Tree[T any] struct {
	nodes    []node
	entries  []Entry[T]
	freeNode nodeIndex
	freeEnt  []EntryID
	root     nodeIndex
	// Margin is added to every leaf box on insert/refit, giving moving
	// leaves slack before a refit is required (AABB fattening).
	Margin fixed.Fix64
	// RevalidateFactor bounds how much a node's refit volume may grow,
	// relative to its cached reasonableVolume, before the subtree is
	// rebuilt via a fresh SAH pass (§4.3 "bounds drift").
	RevalidateFactor fixed.Fix64
}

// NewTree builds an empty Tree with the spec's default fattening margin
// and revalidation factor.
func NewTree[T any]() *Tree[T] {
	return &Tree[T]{
		root:             nullNode,
		freeNode:         nullNode,
		Margin:           fixed.FromFloat64(0.1),
		RevalidateFactor: fixed.FromFloat64(2.0),
	}
}

func (t *Tree[T]) allocNode() nodeIndex {
	if t.freeNode != nullNode {
		idx := t.freeNode
		t.freeNode = t.nodes[idx].parent
		t.nodes[idx] = node{parent: nullNode, child1: nullNode, child2: nullNode}
		return idx
	}
	t.nodes = append(t.nodes, node{parent: nullNode, child1: nullNode, child2: nullNode})
	return nodeIndex(len(t.nodes) - 1)
}

func (t *Tree[T]) freeNodeIdx(idx nodeIndex) {
	t.nodes[idx] = node{parent: t.freeNode, child1: nullNode, child2: nullNode}
	t.freeNode = idx
}

func (t *Tree[T]) allocEntry(owner T, box geom.BoundingBox) EntryID {
	if n := len(t.freeEnt); n > 0 {
		id := t.freeEnt[n-1]
		t.freeEnt = t.freeEnt[:n-1]
		t.entries[id] = Entry[T]{Owner: owner, alive: true}
		return id
	}
	t.entries = append(t.entries, Entry[T]{Owner: owner, alive: true})
	return EntryID(len(t.entries) - 1)
}

// Entry returns the entry for id.
func (t *Tree[T]) Entry(id EntryID) *Entry[T] { return &t.entries[id] }

// Box returns the fattened world AABB currently stored for id's leaf node.
func (t *Tree[T]) Box(id EntryID) geom.BoundingBox {
	return t.nodes[t.entries[id].node].box
}

// Insert adds a new leaf with the given tight box, fattened by Margin, and
// returns its EntryID. Insertion descends choosing at each internal node
// the child whose bounding-box expansion would grow least — the
// surface-area heuristic of §4.3.
func (t *Tree[T]) Insert(box geom.BoundingBox, owner T) EntryID {
	fat := box.Expanded(t.Margin)
	id := t.allocEntry(owner, fat)
	leaf := t.allocNode()
	t.nodes[leaf] = node{parent: nullNode, child1: nullNode, child2: nullNode, box: fat, height: 0, entry: id}
	t.entries[id].node = leaf

	if t.root == nullNode {
		t.root = leaf
		return id
	}
	t.insertLeaf(leaf)
	return id
}

func (t *Tree[T]) insertLeaf(leaf nodeIndex) {
	leafBox := t.nodes[leaf].box
	cur := t.root
	for !t.nodes[cur].isLeaf() {
		c1, c2 := t.nodes[cur].child1, t.nodes[cur].child2
		area := t.nodes[cur].box.SurfaceArea()
		combined := geom.Merge(t.nodes[cur].box, leafBox)
		combinedArea := combined.SurfaceArea()

		cost := fixed.Two.SafeMul(combinedArea)
		inheritance := fixed.Two.SafeMul(combinedArea.SafeSub(area))

		costFor := func(child nodeIndex) fixed.Fix64 {
			childBox := geom.Merge(t.nodes[child].box, leafBox)
			if t.nodes[child].isLeaf() {
				return childBox.SurfaceArea().SafeAdd(inheritance)
			}
			oldArea := t.nodes[child].box.SurfaceArea()
			newArea := childBox.SurfaceArea()
			return (newArea.SafeSub(oldArea)).SafeAdd(inheritance)
		}
		cost1, cost2 := costFor(c1), costFor(c2)
		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			cur = c1
		} else {
			cur = c2
		}
	}

	sibling := cur
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	t.nodes[newParent] = node{
		parent: oldParent,
		box:    geom.Merge(leafBox, t.nodes[sibling].box),
		height: t.nodes[sibling].height + 1,
	}
	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}
	t.nodes[newParent].reasonableVolume = t.nodes[newParent].box.Volume()
	t.fixupAncestors(t.nodes[leaf].parent)
}

func (t *Tree[T]) fixupAncestors(start nodeIndex) {
	idx := start
	for idx != nullNode {
		c1, c2 := t.nodes[idx].child1, t.nodes[idx].child2
		t.nodes[idx].box = geom.Merge(t.nodes[c1].box, t.nodes[c2].box)
		h1, h2 := t.nodes[c1].height, t.nodes[c2].height
		if h1 > h2 {
			t.nodes[idx].height = h1 + 1
		} else {
			t.nodes[idx].height = h2 + 1
		}
		idx = t.nodes[idx].parent
	}
}

// Remove deletes an entry. The leaf is found directly through the node
// index stored on the entry, so no tree descent or scan takes place.
func (t *Tree[T]) Remove(id EntryID) {
	e := &t.entries[id]
	if !e.alive {
		return
	}
	leaf := e.node
	e.alive = false
	t.freeEnt = append(t.freeEnt, id)

	parent := t.nodes[leaf].parent
	if parent == nullNode {
		t.root = nullNode
		t.freeNodeIdx(leaf)
		return
	}
	grandparent := t.nodes[parent].parent
	var sibling nodeIndex
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}
	if grandparent != nullNode {
		if t.nodes[grandparent].child1 == parent {
			t.nodes[grandparent].child1 = sibling
		} else {
			t.nodes[grandparent].child2 = sibling
		}
		t.nodes[sibling].parent = grandparent
		t.freeNodeIdx(parent)
		t.freeNodeIdx(leaf)
		t.fixupAncestors(grandparent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNodeIdx(parent)
		t.freeNodeIdx(leaf)
	}
}

// Move updates an entry's tight box; if the new box is no longer contained
// by the leaf's fattened box, the leaf is removed and reinserted (the
// "force-moved" fallback path named in §4.3).
func (t *Tree[T]) Move(id EntryID, tightBox geom.BoundingBox) {
	e := &t.entries[id]
	leaf := e.node
	if t.nodes[leaf].box.Contains(tightBox) {
		return
	}
	owner := e.Owner
	t.Remove(id)
	newID := t.Insert(tightBox, owner)
	// Keep the caller's handle stable: the caller always looks up entries
	// by EntryID, so we physically move the new entry's storage over the
	// freed slot when possible.
	if int(newID) != int(id) {
		t.entries[id] = t.entries[newID]
		t.entries[newID].alive = false
		t.nodes[t.entries[id].node].entry = id
	}
}
