package broadphase

import "github.com/qrigid/engine/geom"

// BruteForce is the simplest possible broad phase, an O(n^2) scan adapted
// from the teacher's physics/broad.go broad_get_collision_pairs: useful as
// a correctness oracle for the tree/grid variants in tests, and as a
// fallback for scenes small enough that tree upkeep isn't worth it.
type BruteForce[T any] struct {
	boxes  map[EntryID]geom.BoundingBox
	owners map[EntryID]T
	nextID EntryID
}

// NewBruteForce builds an empty BruteForce broad phase.
func NewBruteForce[T any]() *BruteForce[T] {
	return &BruteForce[T]{boxes: map[EntryID]geom.BoundingBox{}, owners: map[EntryID]T{}}
}

// Insert adds an entry, returning its EntryID.
func (b *BruteForce[T]) Insert(box geom.BoundingBox, owner T) EntryID {
	id := b.nextID
	b.nextID++
	b.boxes[id] = box
	b.owners[id] = owner
	return id
}

// Remove deletes an entry.
func (b *BruteForce[T]) Remove(id EntryID) {
	delete(b.boxes, id)
	delete(b.owners, id)
}

// Move updates an entry's box.
func (b *BruteForce[T]) Move(id EntryID, box geom.BoundingBox) {
	if _, ok := b.boxes[id]; ok {
		b.boxes[id] = box
	}
}

// Pairs scans every pair once, in ascending-id order, so results are
// deterministic and directly comparable against a tree variant's output.
func (b *BruteForce[T]) Pairs() []Pair {
	ids := make([]EntryID, 0, len(b.boxes))
	for id := range b.boxes {
		ids = append(ids, id)
	}
	// Deterministic ordering: map iteration order is not, so sort first.
	for i := 1; i < len(ids); i++ {
		v := ids[i]
		j := i - 1
		for j >= 0 && ids[j] > v {
			ids[j+1] = ids[j]
			j--
		}
		ids[j+1] = v
	}
	var out []Pair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, bb := ids[i], ids[j]
			if geom.Intersects(b.boxes[a], b.boxes[bb]) {
				out = append(out, Pair{a, bb})
			}
		}
	}
	return out
}
