package broadphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Grid2DSortAndSweep is the alternative broad-phase strategy named in
// spec §4.3 for scenes dominated by motion confined to a plane (e.g. most
// entities sliding on a ground plane): each entry is bucketed into one cell
// of a sparse 2D grid by its box centre projected onto two chosen axes,
// and each occupied cell is paired with itself and its neighbours, every
// candidate pair getting a full box test. Nothing is sorted or swept along
// the third axis. It trades
// the BVH's general-case logarithmic query for a cheaper, more cache-local
// structure when the scene's dominant two axes are known ahead of time.
type Grid2DSortAndSweep[T any] struct {
	// AxisU, AxisV select the two grid axes (0=X, 1=Y, 2=Z); the remaining
	// axis is only checked by the full box test in Pairs.
	AxisU, AxisV int
	CellSize     fixed.Fix64

	entries map[EntryID]gridEntry[T]
	cells   map[cellKey][]EntryID
	nextID  EntryID
}

type gridEntry[T any] struct {
	Owner T
	Box   geom.BoundingBox
	cell  cellKey
}

type cellKey struct{ u, v int64 }

// NewGrid2DSortAndSweep builds a grid bucketing on the given two axes with
// the given cell size. axisU and axisV must differ and each be in [0,2].
func NewGrid2DSortAndSweep[T any](axisU, axisV int, cellSize fixed.Fix64) *Grid2DSortAndSweep[T] {
	return &Grid2DSortAndSweep[T]{
		AxisU: axisU, AxisV: axisV, CellSize: cellSize,
		entries: map[EntryID]gridEntry[T]{},
		cells:   map[cellKey][]EntryID{},
	}
}

func (g *Grid2DSortAndSweep[T]) component(v geom.Vector3, axis int) fixed.Fix64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (g *Grid2DSortAndSweep[T]) cellOf(box geom.BoundingBox) cellKey {
	c := box.Center()
	u := g.component(c, g.AxisU)
	v := g.component(c, g.AxisV)
	return cellKey{
		u: int64(u.SafeDiv(g.CellSize).Floor().Int()),
		v: int64(v.SafeDiv(g.CellSize).Floor().Int()),
	}
}

// Insert adds an entry, returning its EntryID.
func (g *Grid2DSortAndSweep[T]) Insert(box geom.BoundingBox, owner T) EntryID {
	id := g.nextID
	g.nextID++
	key := g.cellOf(box)
	g.entries[id] = gridEntry[T]{Owner: owner, Box: box, cell: key}
	g.cells[key] = append(g.cells[key], id)
	return id
}

// Remove deletes an entry.
func (g *Grid2DSortAndSweep[T]) Remove(id EntryID) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	bucket := g.cells[e.cell]
	for i, x := range bucket {
		if x == id {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[e.cell] = bucket[:len(bucket)-1]
			break
		}
	}
	delete(g.entries, id)
}

// Move updates an entry's box, re-bucketing it if its cell changed.
func (g *Grid2DSortAndSweep[T]) Move(id EntryID, box geom.BoundingBox) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	newKey := g.cellOf(box)
	if newKey == e.cell {
		e.Box = box
		g.entries[id] = e
		return
	}
	owner := e.Owner
	g.Remove(id)
	g.entries[id] = gridEntry[T]{Owner: owner, Box: box, cell: newKey}
	g.cells[newKey] = append(g.cells[newKey], id)
}

// Pairs emits every overlapping pair by checking each occupied cell against
// itself and its 8 neighbors (an entry near a cell boundary may overlap one
// in an adjacent cell). Each cell-pair of (cell, neighbor) is only visited
// once via a lexicographic neighbor-offset filter, and within a
// cell/neighbor pair every entry pair gets the full AABB test; there is no
// sort or sweep along the third axis.
func (g *Grid2DSortAndSweep[T]) Pairs() []Pair {
	seen := map[Pair]struct{}{}
	var out []Pair
	neighborOffsets := []cellKey{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {-1, 1}}
	for key, bucket := range g.cells {
		for _, off := range neighborOffsets {
			nk := cellKey{key.u + off.u, key.v + off.v}
			other, ok := g.cells[nk]
			if !ok {
				continue
			}
			same := nk == key
			for i, a := range bucket {
				start := 0
				if same {
					start = i + 1
				}
				for j := start; j < len(other); j++ {
					b := other[j]
					if same && b == a {
						continue
					}
					if !geom.Intersects(g.entries[a].Box, g.entries[b].Box) {
						continue
					}
					p := Pair{a, b}
					if p.A > p.B {
						p.A, p.B = p.B, p.A
					}
					if _, dup := seen[p]; dup {
						continue
					}
					seen[p] = struct{}{}
					out = append(out, p)
				}
			}
		}
	}
	return out
}
