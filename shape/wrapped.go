package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Transformed wraps a Shape with a fixed local offset, letting a convex
// primitive be reused off-center without duplicating its geometry (§3).
type Transformed struct {
	Inner     Shape
	LocalXform geom.RigidTransform
}

func NewTransformed(inner Shape, local geom.RigidTransform) *Transformed {
	return &Transformed{Inner: inner, LocalXform: local}
}

func (t *Transformed) Convex() bool { return t.Inner.Convex() }

func (t *Transformed) Describe() Description {
	d := t.Inner.Describe()
	d.MaxRadius = d.MaxRadius.SafeAdd(t.LocalXform.Pos.Len())
	return d
}

func (t *Transformed) Support(dir geom.Vector3) geom.Vector3 {
	local := t.LocalXform.ToLocalDir(dir)
	return t.LocalXform.ToWorld(t.Inner.Support(local))
}

func (t *Transformed) LocalBoundingBox(outer geom.RigidTransform) geom.BoundingBox {
	return t.Inner.LocalBoundingBox(outer.Combine(t.LocalXform))
}

func (t *Transformed) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	lo := t.LocalXform.ToLocal(origin)
	ld := t.LocalXform.ToLocalDir(dir)
	rt, n, hit := t.Inner.RayTest(lo, ld, maxT)
	if !hit {
		return 0, geom.Vector3{}, false
	}
	return rt, t.LocalXform.ToWorldDir(n), true
}

// Wrapped adds extra collision margin on top of an inner shape without
// altering its core geometry — useful for giving a thin shape (a single
// Triangle, a low-poly hull) breathing room in the narrow phase.
type Wrapped struct {
	Inner  Shape
	extra  fixed.Fix64
}

func NewWrapped(inner Shape, extraMargin fixed.Fix64) *Wrapped {
	return &Wrapped{Inner: inner, extra: extraMargin}
}

func (w *Wrapped) Convex() bool { return w.Inner.Convex() }

func (w *Wrapped) Describe() Description {
	d := w.Inner.Describe()
	d.Margin = d.Margin.SafeAdd(w.extra)
	return d
}

func (w *Wrapped) Support(dir geom.Vector3) geom.Vector3 { return w.Inner.Support(dir) }

func (w *Wrapped) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	return w.Inner.LocalBoundingBox(t).Expanded(w.extra)
}

func (w *Wrapped) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	return w.Inner.RayTest(origin, dir, maxT)
}

// Minkowski represents the Minkowski sum of two convex shapes — GJK/EPA
// operate on arbitrary convex supports, so the sum's support function is
// simply the sum of its operands' supports along the same direction; no
// explicit geometry is ever materialized (§4.2).
type Minkowski struct {
	A, B Shape
}

func NewMinkowskiSum(a, b Shape) *Minkowski { return &Minkowski{A: a, B: b} }

func (m *Minkowski) Convex() bool { return m.A.Convex() && m.B.Convex() }

func (m *Minkowski) Describe() Description {
	da, db := m.A.Describe(), m.B.Describe()
	return Description{
		Volume:      da.Volume.SafeAdd(db.Volume),
		InertiaDiag: da.InertiaDiag.Add(db.InertiaDiag),
		MinRadius:   da.MinRadius.SafeAdd(db.MinRadius),
		MaxRadius:   da.MaxRadius.SafeAdd(db.MaxRadius),
		Margin:      fixed.Max(da.Margin, db.Margin),
	}
}

func (m *Minkowski) Support(dir geom.Vector3) geom.Vector3 {
	return m.A.Support(dir).Add(m.B.Support(dir))
}

func (m *Minkowski) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	return m.A.LocalBoundingBox(t).Merge(m.B.LocalBoundingBox(t))
}

func (m *Minkowski) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	return supportRayTest(m, origin, dir, maxT)
}

// supportRayTest provides a generic (conservative) ray test for
// support-only shapes by intersecting the ray with the shape's local
// bounding box only; there is no bisection or distance query. Used by
// shapes whose geometry has no closed form (Minkowski sums). Exact
// sweep-based ray casting against an arbitrary Minkowski sum is performed
// by the narrowphase CCD sweep (convex_cast), not this single-shape query.
func supportRayTest(s Shape, origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	box := s.LocalBoundingBox(geom.Identity())
	t, hit := box.RayIntersect(origin, dir, maxT)
	if !hit {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	return t, p.Sub(box.Center()).Unit(), true
}
