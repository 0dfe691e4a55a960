package shape

import (
	"testing"

	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

func ff(v float64) fixed.Fix64 { return fixed.FromFloat64(v) }

func TestBoxSupportExtent(t *testing.T) {
	b := NewBox(ff(1), ff(2), ff(3), 0)
	p := b.Support(geom.V3(fixed.One, fixed.One, fixed.One))
	want := geom.V3(ff(1), ff(2), ff(3))
	if !p.Aeq(want) {
		t.Errorf("Support = %+v, want %+v", p, want)
	}
}

func TestBoxVolume(t *testing.T) {
	b := NewBox(ff(0.5), ff(0.5), ff(0.5), 0)
	d := b.Describe()
	if diff := d.Volume.Float64() - 1.0; diff > 0.01 || diff < -0.01 {
		t.Errorf("unit box volume = %v, want 1", d.Volume.Float64())
	}
}

func TestSphereRayTest(t *testing.T) {
	s := NewSphere(ff(1), 0)
	tHit, n, ok := s.RayTest(geom.V3(0, 0, ff(-5)), geom.V3(0, 0, fixed.One), ff(100))
	if !ok {
		t.Fatal("expected hit")
	}
	if diff := tHit.Float64() - 4.0; diff > 0.01 || diff < -0.01 {
		t.Errorf("t = %v, want ~4", tHit.Float64())
	}
	if !n.Aeq(geom.V3(0, 0, -fixed.One)) {
		t.Errorf("normal = %+v, want (0,0,-1)", n)
	}
}

func TestTriangleRayGrazing(t *testing.T) {
	tri := NewTriangle(geom.V3(0, 0, 0), geom.V3(fixed.One, 0, 0), geom.V3(0, fixed.One, 0), DoubleSided, 0)
	maxT := ff(10)
	tHit, _, ok := tri.RayTest(geom.V3(ff(0.25), ff(0.25), ff(-1)), geom.V3(0, 0, fixed.One), maxT)
	if !ok || tHit > maxT {
		t.Errorf("hit=%v t=%v, want hit with t<=maxT", ok, tHit.Float64())
	}
}
