package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Capsule is a cylinder capped by two hemispheres, its axis along Y,
// centered at the origin. HalfHeight is the distance from center to the
// start of each hemisphere cap (i.e. total length = 2*HalfHeight + 2*Radius).
type Capsule struct {
	Radius, HalfHeight fixed.Fix64
	margin             fixed.Fix64
}

// NewCapsule builds a Capsule shape.
func NewCapsule(radius, halfHeight, margin fixed.Fix64) *Capsule {
	return &Capsule{Radius: radius.Abs(), HalfHeight: halfHeight.Abs(), margin: margin}
}

func (c *Capsule) Convex() bool { return true }

func (c *Capsule) Describe() Description {
	r, h := c.Radius, c.HalfHeight.SafeMul(fixed.Two)
	pi := fixed.FromFloat64(3.14159265)
	cylVol := pi.SafeMul(r).SafeMul(r).SafeMul(h)
	sphVol := fixed.FromFloat64(4.0 / 3.0 * 3.14159265).SafeMul(r).SafeMul(r).SafeMul(r)
	vol := cylVol.SafeAdd(sphVol)
	// approximate solid-capsule inertia: cylinder + two end caps, cylinder
	// axis along Y.
	iy := r.SafeMul(r).SafeDiv(fixed.Two)
	ix := (fixed.FromInt(3).SafeMul(r).SafeMul(r).SafeAdd(h.SafeMul(h))).SafeDiv(fixed.FromInt(12))
	return Description{
		Volume: vol, InertiaDiag: geom.V3(ix, iy, ix),
		MinRadius: r, MaxRadius: r.SafeAdd(c.HalfHeight), Margin: c.margin,
	}
}

func (c *Capsule) Support(dir geom.Vector3) geom.Vector3 {
	ball := dir.Unit().Scale(c.Radius)
	if dir.Y >= 0 {
		return geom.V3(0, c.HalfHeight, 0).Add(ball)
	}
	return geom.V3(0, -c.HalfHeight, 0).Add(ball)
}

func (c *Capsule) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	return supportAabb(c, t, c.margin)
}

func (c *Capsule) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	// Test the two sphere caps and the cylindrical side, return the
	// nearest valid hit.
	bestT := maxT
	bestNormal := geom.Vector3{}
	hit := false
	caps := []geom.Vector3{{Y: c.HalfHeight}, {Y: -c.HalfHeight}}
	sphereAt := func(center geom.Vector3) (fixed.Fix64, geom.Vector3, bool) {
		o := origin.Sub(center)
		s := NewSphere(c.Radius, c.margin)
		t, n, ok := s.RayTest(o, dir, bestT)
		return t, n, ok
	}
	for _, cap := range caps {
		if t, n, ok := sphereAt(cap); ok && t < bestT {
			bestT, bestNormal, hit = t, n, true
		}
	}
	// infinite cylinder test, clipped to [-HalfHeight, HalfHeight] along Y.
	ox, oz, dx, dz := origin.X, origin.Z, dir.X, dir.Z
	a := dx.SafeMul(dx).SafeAdd(dz.SafeMul(dz))
	if !a.AeqZero() {
		r := c.Radius.SafeAdd(c.margin)
		b := fixed.Two.SafeMul(ox.SafeMul(dx).SafeAdd(oz.SafeMul(dz)))
		cc := ox.SafeMul(ox).SafeAdd(oz.SafeMul(oz)).SafeSub(r.SafeMul(r))
		disc := b.SafeMul(b).SafeSub(fixed.FromInt(4).SafeMul(a).SafeMul(cc))
		if disc >= 0 {
			sq, _ := disc.Sqrt()
			t := (-b).SafeSub(sq).SafeDiv(fixed.Two.SafeMul(a))
			if t >= 0 && t < bestT {
				y := origin.Y.SafeAdd(dir.Y.SafeMul(t))
				if y >= -c.HalfHeight && y <= c.HalfHeight {
					p := origin.Add(dir.Scale(t))
					n := geom.V3(p.X, 0, p.Z).Unit()
					bestT, bestNormal, hit = t, n, true
				}
			}
		}
	}
	return bestT, bestNormal, hit
}
