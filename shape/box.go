package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Box is a rectangular prism centered at the origin, given by half-extents.
// Grounded on the teacher's physics/shape.go box struct and its
// Aabb/Inertia methods, generalized to fixed-point and to the
// support-function contract.
type Box struct {
	Half   geom.Vector3
	margin fixed.Fix64
}

// NewBox builds a Box shape from half-extents, each forced non-negative.
func NewBox(hx, hy, hz, margin fixed.Fix64) *Box {
	return &Box{Half: geom.V3(hx.Abs(), hy.Abs(), hz.Abs()), margin: margin}
}

func (b *Box) Convex() bool { return true }

func (b *Box) Describe() Description {
	hx, hy, hz := b.Half.X, b.Half.Y, b.Half.Z
	vol := fixed.Two.SafeMul(hx).SafeMul(fixed.Two.SafeMul(hy)).SafeMul(fixed.Two.SafeMul(hz))
	lx2, ly2, lz2 := fixed.Two.SafeMul(hx).Mul(fixed.Two.SafeMul(hx)),
		fixed.Two.SafeMul(hy).Mul(fixed.Two.SafeMul(hy)),
		fixed.Two.SafeMul(hz).Mul(fixed.Two.SafeMul(hz))
	twelfth := fixed.One.SafeDiv(fixed.FromInt(12))
	inertia := geom.V3(
		twelfth.SafeMul(ly2.SafeAdd(lz2)),
		twelfth.SafeMul(lx2.SafeAdd(lz2)),
		twelfth.SafeMul(lx2.SafeAdd(ly2)),
	)
	maxR := b.Half.Len()
	minR := fixed.Min(fixed.Min(hx, hy), hz)
	return Description{Volume: vol, InertiaDiag: inertia, MinRadius: minR, MaxRadius: maxR, Margin: b.margin}
}

func (b *Box) Support(dir geom.Vector3) geom.Vector3 {
	sign := func(f fixed.Fix64) fixed.Fix64 {
		if f < 0 {
			return -fixed.One
		}
		return fixed.One
	}
	return geom.V3(
		sign(dir.X).SafeMul(b.Half.X),
		sign(dir.Y).SafeMul(b.Half.Y),
		sign(dir.Z).SafeMul(b.Half.Z),
	)
}

func (b *Box) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	m := geom.FromQuaternion(t.Rot)
	absRow := func(x, y, z fixed.Fix64) fixed.Fix64 { return x.Abs().SafeAdd(y.Abs()).SafeAdd(z.Abs()) }
	ex := absRow(m.M00.SafeMul(b.Half.X), m.M01.SafeMul(b.Half.Y), m.M02.SafeMul(b.Half.Z))
	ey := absRow(m.M10.SafeMul(b.Half.X), m.M11.SafeMul(b.Half.Y), m.M12.SafeMul(b.Half.Z))
	ez := absRow(m.M20.SafeMul(b.Half.X), m.M21.SafeMul(b.Half.Y), m.M22.SafeMul(b.Half.Z))
	extents := geom.V3(ex, ey, ez)
	return geom.FromCenterHalfExtents(t.Pos, extents, b.margin)
}

func (b *Box) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	box := geom.NewBoundingBox(b.Half.Neg(), b.Half)
	t, hit := box.RayIntersect(origin, dir, maxT)
	if !hit {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	normal := faceNormal(p, b.Half)
	return t, normal, true
}

// faceNormal returns the outward box-face normal nearest point p.
func faceNormal(p, half geom.Vector3) geom.Vector3 {
	dx, dy, dz := half.X.SafeSub(p.X.Abs()), half.Y.SafeSub(p.Y.Abs()), half.Z.SafeSub(p.Z.Abs())
	switch {
	case dx <= dy && dx <= dz:
		if p.X < 0 {
			return geom.V3(-fixed.One, 0, 0)
		}
		return geom.V3(fixed.One, 0, 0)
	case dy <= dz:
		if p.Y < 0 {
			return geom.V3(0, -fixed.One, 0)
		}
		return geom.V3(0, fixed.One, 0)
	default:
		if p.Z < 0 {
			return geom.V3(0, 0, -fixed.One)
		}
		return geom.V3(0, 0, fixed.One)
	}
}
