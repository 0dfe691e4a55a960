package broadphase

import (
	"errors"

	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// ErrMissingEntity is returned when a query or mutation references an
// EntryID the tree no longer holds, and by RayCast for a non-positive maxT.
var ErrMissingEntity = errors.New("broadphase: missing entity")

// BoxQuery appends to out every live entry whose box intersects query.
func (t *Tree[T]) BoxQuery(query geom.BoundingBox, out []EntryID) []EntryID {
	return t.boxQuery(t.root, query, out)
}

func (t *Tree[T]) boxQuery(n nodeIndex, query geom.BoundingBox, out []EntryID) []EntryID {
	if n == nullNode || !geom.Intersects(t.nodes[n].box, query) {
		return out
	}
	if t.nodes[n].isLeaf() {
		return append(out, t.nodes[n].entry)
	}
	out = t.boxQuery(t.nodes[n].child1, query, out)
	out = t.boxQuery(t.nodes[n].child2, query, out)
	return out
}

// SphereQuery appends to out every live entry whose box intersects the
// sphere's bounding box (a conservative broad-phase test per §4.3; exact
// sphere/shape overlap is the narrow phase's job).
func (t *Tree[T]) SphereQuery(center geom.Vector3, radius fixed.Fix64, out []EntryID) []EntryID {
	r := geom.Vector3{radius, radius, radius}
	box := geom.BoundingBox{Min: center.Sub(r), Max: center.Add(r)}
	return t.BoxQuery(box, out)
}

// RayHit is one candidate produced by RayCast: the entry and the ray's
// entry t-value against its fattened box (a broad-phase prefilter; the
// caller's narrow phase resolves the true hit point).
type RayHit struct {
	Entry EntryID
	T     fixed.Fix64
}

// RayCast walks the tree pruning by slab test, appending every leaf whose
// box the finite ray segment [origin, origin+dir*maxT] intersects. A
// non-positive maxT is rejected here with ErrMissingEntity and no hits.
func (t *Tree[T]) RayCast(origin, dir geom.Vector3, maxT fixed.Fix64, out []RayHit) ([]RayHit, error) {
	if maxT <= 0 {
		return out, ErrMissingEntity
	}
	return t.rayCast(t.root, origin, dir, maxT, out), nil
}

func (t *Tree[T]) rayCast(n nodeIndex, origin, dir geom.Vector3, maxT fixed.Fix64, out []RayHit) []RayHit {
	if n == nullNode {
		return out
	}
	tHit, hit := t.nodes[n].box.RayIntersect(origin, dir, maxT)
	if !hit {
		return out
	}
	if t.nodes[n].isLeaf() {
		return append(out, RayHit{Entry: t.nodes[n].entry, T: tHit})
	}
	out = t.rayCast(t.nodes[n].child1, origin, dir, maxT, out)
	out = t.rayCast(t.nodes[n].child2, origin, dir, maxT, out)
	return out
}

// FrustumPlane is one half-space of a query frustum: points p satisfying
// Normal.Dot(p) + D >= 0 are inside.
type FrustumPlane struct {
	Normal geom.Vector3
	D      fixed.Fix64
}

// FrustumQuery appends every entry whose box is not fully excluded by any
// plane (conservative: partially-overlapping boxes are included). This is
// a placeholder collaborator for host rendering/culling use — §1 excludes
// rendering itself from this module's scope, but the query primitive is
// cheap to provide alongside RayCast/BoxQuery.
func (t *Tree[T]) FrustumQuery(planes []FrustumPlane, out []EntryID) []EntryID {
	return t.frustumQuery(t.root, planes, out)
}

func (t *Tree[T]) frustumQuery(n nodeIndex, planes []FrustumPlane, out []EntryID) []EntryID {
	if n == nullNode {
		return out
	}
	box := t.nodes[n].box
	for _, p := range planes {
		if boxOutsidePlane(box, p) {
			return out
		}
	}
	if t.nodes[n].isLeaf() {
		return append(out, t.nodes[n].entry)
	}
	out = t.frustumQuery(t.nodes[n].child1, planes, out)
	out = t.frustumQuery(t.nodes[n].child2, planes, out)
	return out
}

func boxOutsidePlane(box geom.BoundingBox, p FrustumPlane) bool {
	// Positive-extent corner along the plane normal: if even that corner is
	// outside, the whole box is outside.
	pick := func(n, lo, hi fixed.Fix64) fixed.Fix64 {
		if n >= 0 {
			return hi
		}
		return lo
	}
	corner := geom.V3(
		pick(p.Normal.X, box.Min.X, box.Max.X),
		pick(p.Normal.Y, box.Min.Y, box.Max.Y),
		pick(p.Normal.Z, box.Min.Z, box.Max.Z),
	)
	return p.Normal.Dot(corner).SafeAdd(p.D) < 0
}
