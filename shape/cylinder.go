package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Cylinder has its axis along Y, centered at the origin.
type Cylinder struct {
	Radius, HalfHeight fixed.Fix64
	margin             fixed.Fix64
}

func NewCylinder(radius, halfHeight, margin fixed.Fix64) *Cylinder {
	return &Cylinder{Radius: radius.Abs(), HalfHeight: halfHeight.Abs(), margin: margin}
}

func (c *Cylinder) Convex() bool { return true }

func (c *Cylinder) Describe() Description {
	r, hh := c.Radius, c.HalfHeight
	h := hh.SafeMul(fixed.Two)
	pi := fixed.FromFloat64(3.14159265)
	vol := pi.SafeMul(r).SafeMul(r).SafeMul(h)
	iy := r.SafeMul(r).SafeDiv(fixed.Two)
	ix := (fixed.FromInt(3).SafeMul(r).SafeMul(r).SafeAdd(h.SafeMul(h))).SafeDiv(fixed.FromInt(12))
	maxR := r.SafeMul(r).SafeAdd(hh.SafeMul(hh)).SqrtClamped()
	return Description{Volume: vol, InertiaDiag: geom.V3(ix, iy, ix), MinRadius: fixed.Min(r, hh), MaxRadius: maxR, Margin: c.margin}
}

func (c *Cylinder) Support(dir geom.Vector3) geom.Vector3 {
	sigY := fixed.One
	if dir.Y < 0 {
		sigY = -fixed.One
	}
	radial := geom.V3(dir.X, 0, dir.Z)
	if radial.AeqZero() {
		return geom.V3(0, sigY.SafeMul(c.HalfHeight), 0)
	}
	r := radial.Unit().Scale(c.Radius)
	return geom.V3(r.X, sigY.SafeMul(c.HalfHeight), r.Z)
}

func (c *Cylinder) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	return supportAabb(c, t, c.margin)
}

func (c *Cylinder) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	r := c.Radius.SafeAdd(c.margin)
	bestT, bestN, hit := maxT, geom.Vector3{}, false
	// side
	ox, oz, dx, dz := origin.X, origin.Z, dir.X, dir.Z
	a := dx.SafeMul(dx).SafeAdd(dz.SafeMul(dz))
	if !a.AeqZero() {
		b := fixed.Two.SafeMul(ox.SafeMul(dx).SafeAdd(oz.SafeMul(dz)))
		cc := ox.SafeMul(ox).SafeAdd(oz.SafeMul(oz)).SafeSub(r.SafeMul(r))
		disc := b.SafeMul(b).SafeSub(fixed.FromInt(4).SafeMul(a).SafeMul(cc))
		if disc >= 0 {
			sq, _ := disc.Sqrt()
			t := (-b).SafeSub(sq).SafeDiv(fixed.Two.SafeMul(a))
			y := origin.Y.SafeAdd(dir.Y.SafeMul(t))
			if t >= 0 && t < bestT && y >= -c.HalfHeight && y <= c.HalfHeight {
				p := origin.Add(dir.Scale(t))
				bestT, bestN, hit = t, geom.V3(p.X, 0, p.Z).Unit(), true
			}
		}
	}
	// caps
	for _, sign := range []fixed.Fix64{fixed.One, -fixed.One} {
		if dir.Y.AeqZero() {
			continue
		}
		capY := sign.SafeMul(c.HalfHeight)
		t := capY.SafeSub(origin.Y).SafeDiv(dir.Y)
		if t < 0 || t >= bestT {
			continue
		}
		p := origin.Add(dir.Scale(t))
		if p.X.SafeMul(p.X).SafeAdd(p.Z.SafeMul(p.Z)) <= r.SafeMul(r) {
			bestT, bestN, hit = t, geom.V3(0, sign, 0), true
		}
	}
	return bestT, bestN, hit
}
