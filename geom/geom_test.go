package geom

import (
	"testing"

	"github.com/qrigid/engine/fixed"
)

func f(v float64) fixed.Fix64 { return fixed.FromFloat64(v) }

func TestBoundingBoxMergeSelf(t *testing.T) {
	a := NewBoundingBox(V3(f(-1), f(-1), f(-1)), V3(f(1), f(1), f(1)))
	if got := a.Merge(a); got != a {
		t.Errorf("Merge(a,a) = %+v, want %+v", got, a)
	}
}

func TestBoundingBoxIntersectsTouching(t *testing.T) {
	a := NewBoundingBox(V3(0, 0, 0), V3(f(1), f(1), f(1)))
	b := NewBoundingBox(V3(f(1), 0, 0), V3(f(2), f(1), f(1)))
	if !a.Intersects(b) {
		t.Error("touching boxes should intersect (distance == 0)")
	}
}

func TestQuaternionFromMatrixRoundTrip(t *testing.T) {
	q := QFromAxisAngle(V3(0, fixed.One, 0), fixed.HalfPi)
	m := FromQuaternion(q)
	q2 := FromMatrix(m)
	// sign-ambiguous: compare via rotated test vector instead of raw components.
	v := V3(fixed.One, 0, 0)
	if !q.RotateVector(v).Aeq(q2.RotateVector(v)) {
		t.Errorf("round-trip rotation mismatch: %+v vs %+v", q.RotateVector(v), q2.RotateVector(v))
	}
}

func TestVector3UnitLength(t *testing.T) {
	v := V3(f(3), f(4), 0)
	u := v.Unit()
	if diff := u.Len().Float64() - 1.0; diff > 0.01 || diff < -0.01 {
		t.Errorf("unit vector length = %v, want 1", u.Len().Float64())
	}
}

func TestRigidTransformToWorldToLocal(t *testing.T) {
	tr := RigidTransform{Pos: V3(f(1), f(2), f(3)), Rot: QFromAxisAngle(V3(0, fixed.One, 0), fixed.HalfPi)}
	p := V3(f(5), f(6), f(7))
	world := tr.ToWorld(p)
	back := tr.ToLocal(world)
	if !back.Aeq(p) {
		t.Errorf("ToLocal(ToWorld(p)) = %+v, want %+v", back, p)
	}
}
