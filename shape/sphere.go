package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Sphere is a ball of the given radius centered at the origin. Grounded on
// the teacher's physics/shape.go sphere struct.
type Sphere struct {
	Radius fixed.Fix64
	margin fixed.Fix64
}

// NewSphere builds a Sphere shape.
func NewSphere(radius, margin fixed.Fix64) *Sphere { return &Sphere{Radius: radius.Abs(), margin: margin} }

func (s *Sphere) Convex() bool { return true }

func (s *Sphere) Describe() Description {
	r := s.Radius
	vol := fixed.FromFloat64(4.0 / 3.0 * 3.14159265).SafeMul(r).SafeMul(r).SafeMul(r)
	i := fixed.Two.SafeMul(r).Mul(r).SafeDiv(fixed.FromInt(5))
	return Description{
		Volume: vol, InertiaDiag: geom.V3(i, i, i),
		MinRadius: r, MaxRadius: r, Margin: s.margin,
	}
}

func (s *Sphere) Support(dir geom.Vector3) geom.Vector3 {
	// The core (margin-free) shape is a ball of Radius; the separate
	// collision margin is added by the caller per the Shape contract.
	return dir.Unit().Scale(s.Radius)
}

func (s *Sphere) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	r := geom.V3(s.Radius, s.Radius, s.Radius)
	return geom.FromCenterHalfExtents(t.Pos, r, s.margin)
}

func (s *Sphere) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	r := s.Radius.SafeAdd(s.margin)
	a := dir.Dot(dir)
	if a.AeqZero() {
		return 0, geom.Vector3{}, false
	}
	b := fixed.Two.SafeMul(origin.Dot(dir))
	c := origin.Dot(origin).SafeSub(r.SafeMul(r))
	disc := b.SafeMul(b).SafeSub(fixed.FromInt(4).SafeMul(a).SafeMul(c))
	if disc < 0 {
		return 0, geom.Vector3{}, false
	}
	sq, _ := disc.Sqrt()
	t := (-b).SafeSub(sq).SafeDiv(fixed.Two.SafeMul(a))
	if t < 0 {
		t = (-b).SafeAdd(sq).SafeDiv(fixed.Two.SafeMul(a))
	}
	if t < 0 || t > maxT {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	return t, p.Unit(), true
}
