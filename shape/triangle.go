package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Triangle is a flat, zero-volume convex primitive used both standalone
// (e.g. a single collision plane) and as the per-face unit the mesh shapes
// decompose into. Its Sidedness controls contact-normal sign (§4.2).
type Triangle struct {
	A, B, C geom.Vector3
	Side    Sidedness
	margin  fixed.Fix64
}

func NewTriangle(a, b, c geom.Vector3, side Sidedness, margin fixed.Fix64) *Triangle {
	return &Triangle{A: a, B: b, C: c, Side: side, margin: margin}
}

func (tr *Triangle) Convex() bool { return true }

// Normal returns the triangle's face normal, oriented per Side (for
// DoubleSided, the geometric right-hand-rule normal is returned; the
// narrow phase chooses the sign that faces the other collidable).
func (tr *Triangle) Normal() geom.Vector3 {
	n := tr.B.Sub(tr.A).Cross(tr.C.Sub(tr.A)).Unit()
	if tr.Side == Clockwise {
		return n.Neg()
	}
	return n
}

func (tr *Triangle) Describe() Description {
	centroid := tr.A.Add(tr.B).Add(tr.C).Scale(fixed.One.SafeDiv(fixed.FromInt(3)))
	maxR := fixed.Zero
	for _, p := range []geom.Vector3{tr.A, tr.B, tr.C} {
		d := p.Sub(centroid).Len()
		if d > maxR {
			maxR = d
		}
	}
	return Description{Volume: 0, InertiaDiag: geom.Vector3{}, MinRadius: 0, MaxRadius: maxR, Margin: tr.margin}
}

func (tr *Triangle) Support(dir geom.Vector3) geom.Vector3 {
	best, bestD := tr.A, tr.A.Dot(dir)
	if d := tr.B.Dot(dir); d > bestD {
		best, bestD = tr.B, d
	}
	if d := tr.C.Dot(dir); d > bestD {
		best, bestD = tr.C, d
	}
	return best
}

func (tr *Triangle) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	a, b, c := t.ToWorld(tr.A), t.ToWorld(tr.B), t.ToWorld(tr.C)
	box := geom.NewBoundingBox(a, a).Merge(geom.NewBoundingBox(b, b)).Merge(geom.NewBoundingBox(c, c))
	return box.Expanded(tr.margin)
}

func (tr *Triangle) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	n := tr.Normal()
	denom := n.Dot(dir)
	if tr.Side != DoubleSided && denom > 0 {
		return 0, geom.Vector3{}, false // back-face culled for single-sided triangles
	}
	if denom.AeqZero() {
		return 0, geom.Vector3{}, false
	}
	t := tr.A.Sub(origin).Dot(n).SafeDiv(denom)
	if t < 0 || t > maxT {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	if !pointInTriangle(p, tr.A, tr.B, tr.C) {
		return 0, geom.Vector3{}, false
	}
	if denom > 0 {
		return t, n.Neg(), true
	}
	return t, n, true
}

func pointInTriangle(p, a, b, c geom.Vector3) bool {
	ab, ac, ap := b.Sub(a), c.Sub(a), p.Sub(a)
	d00 := ab.Dot(ab)
	d01 := ab.Dot(ac)
	d11 := ac.Dot(ac)
	d20 := ap.Dot(ab)
	d21 := ap.Dot(ac)
	denom := d00.SafeMul(d11).SafeSub(d01.SafeMul(d01))
	if denom.AeqZero() {
		return false
	}
	v := d11.SafeMul(d20).SafeSub(d01.SafeMul(d21)).SafeDiv(denom)
	w := d00.SafeMul(d21).SafeSub(d01.SafeMul(d20)).SafeDiv(denom)
	u := fixed.One.SafeSub(v).SafeSub(w)
	return u >= -fixed.Epsilon && v >= -fixed.Epsilon && w >= -fixed.Epsilon
}
