package entity

import (
	"testing"

	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

func TestPairIDOrderIndependent(t *testing.T) {
	a := New(shape.NewSphere(fixed.One, 0))
	b := New(shape.NewSphere(fixed.One, 0))
	if a.PairID(b) != b.PairID(a) {
		t.Error("pairID should be independent of call order")
	}
}

func TestSetMaterialStaticByDefault(t *testing.T) {
	e := New(shape.NewBox(fixed.One, fixed.One, fixed.One, 0))
	if e.Movable() {
		t.Error("entity with no mass set should be static")
	}
}

func TestIntegrateVelocitiesAppliesGravity(t *testing.T) {
	e := New(shape.NewSphere(fixed.One, 0))
	e.SetMaterial(fixed.One, DefaultMaterial)
	e.ApplyGravity(geom.V3(0, fixed.FromFloat64(-9.8), 0))
	e.IntegrateVelocities(fixed.FromFloat64(1.0 / 60))
	if e.LinVel.Y >= 0 {
		t.Errorf("expected downward velocity after gravity, got %v", e.LinVel.Y.Float64())
	}
}

func TestWakeResetsActivity(t *testing.T) {
	e := New(shape.NewSphere(fixed.One, 0))
	e.Activity.Candidate = true
	e.Wake()
	if e.Activity.Candidate || !e.Activity.Active {
		t.Error("Wake should clear candidate flag and mark active")
	}
}
