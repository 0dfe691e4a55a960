package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Cone has its apex at +HalfHeight on Y and its circular base at -HalfHeight.
type Cone struct {
	Radius, HalfHeight fixed.Fix64
	margin             fixed.Fix64
}

func NewCone(radius, halfHeight, margin fixed.Fix64) *Cone {
	return &Cone{Radius: radius.Abs(), HalfHeight: halfHeight.Abs(), margin: margin}
}

func (c *Cone) Convex() bool { return true }

func (c *Cone) Describe() Description {
	r, hh := c.Radius, c.HalfHeight
	h := hh.SafeMul(fixed.Two)
	pi := fixed.FromFloat64(3.14159265)
	vol := pi.SafeMul(r).SafeMul(r).SafeMul(h).SafeDiv(fixed.FromInt(3))
	iy := fixed.FromInt(3).SafeMul(r).SafeMul(r).SafeDiv(fixed.Ten)
	ix := fixed.FromFloat64(3.0 / 20.0).SafeMul(r).SafeMul(r).SafeAdd(fixed.FromFloat64(3.0 / 80.0).SafeMul(h).SafeMul(h))
	maxR := r.SafeMul(r).SafeAdd(hh.SafeMul(hh)).SqrtClamped()
	return Description{Volume: vol, InertiaDiag: geom.V3(ix, iy, ix), MinRadius: fixed.Min(r, hh), MaxRadius: maxR, Margin: c.margin}
}

func (c *Cone) Support(dir geom.Vector3) geom.Vector3 {
	apex := geom.V3(0, c.HalfHeight, 0)
	radial := geom.V3(dir.X, 0, dir.Z)
	var base geom.Vector3
	if radial.AeqZero() {
		base = geom.V3(c.Radius, -c.HalfHeight, 0)
	} else {
		r := radial.Unit().Scale(c.Radius)
		base = geom.V3(r.X, -c.HalfHeight, r.Z)
	}
	if apex.Dot(dir) >= base.Dot(dir) {
		return apex
	}
	return base
}

func (c *Cone) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	return supportAabb(c, t, c.margin)
}

func (c *Cone) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	// Approximate via the cone's local AABB slab test; sufficient for the
	// broad coarse queries this shape is used for (fine contact generation
	// goes through GJK/EPA, not RayTest).
	hb := geom.NewBoundingBox(geom.V3(-c.Radius, -c.HalfHeight, -c.Radius), geom.V3(c.Radius, c.HalfHeight, c.Radius))
	t, hit := hb.RayIntersect(origin, dir, maxT)
	if !hit {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	return t, geom.V3(p.X, 0, p.Z).Unit(), true
}
