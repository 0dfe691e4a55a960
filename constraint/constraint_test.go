package constraint

import (
	"testing"

	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

func dynamicBox(mass float64) *entity.Entity {
	e := entity.New(shape.NewBox(fixed.One, fixed.One, fixed.One, 0))
	e.SetMaterial(fixed.FromFloat64(mass), entity.DefaultMaterial)
	return e
}

func staticBox() *entity.Entity {
	e := entity.New(shape.NewBox(fixed.One, fixed.One, fixed.One, 0))
	e.SetMaterial(0, entity.DefaultMaterial)
	return e
}

// TestPenetrationConstraintNeverPulls asserts the penetration-impulse-
// nonnegativity invariant (§8): a contact constraint's accumulated impulse
// never goes negative, however hard the bodies are driven together or
// apart, since a contact can only push.
func TestPenetrationConstraintNeverPulls(t *testing.T) {
	floor := staticBox()
	ball := dynamicBox(1)
	ball.LinVel = geom.V3(0, fixed.FromFloat64(-5), 0) // falling into the floor

	c := NewPenetrationConstraint(floor, ball, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.1))
	dt := fixed.FromFloat64(1.0 / 60)
	for i := 0; i < 20; i++ {
		c.PreStep(dt)
		c.WarmStart()
		for j := 0; j < 4; j++ {
			c.Solve(dt)
		}
		if c.AppliedImpulse < 0 {
			t.Fatalf("iteration %d: accumulated impulse went negative: %v", i, c.AppliedImpulse.Float64())
		}
	}

	// Now drive the ball away from the floor (separating); the impulse
	// should relax toward zero, never overshoot negative.
	ball.LinVel = geom.V3(0, fixed.FromFloat64(5), 0)
	c.Penetration = fixed.FromFloat64(0.5)
	for i := 0; i < 20; i++ {
		c.PreStep(dt)
		for j := 0; j < 4; j++ {
			c.Solve(dt)
		}
		if c.AppliedImpulse < 0 {
			t.Fatalf("separating iteration %d: accumulated impulse went negative: %v", i, c.AppliedImpulse.Float64())
		}
	}
}

// TestFrictionConstraintBoundedByCone asserts the friction-impulse-bound
// invariant (§8): a friction constraint's accumulated impulse never exceeds
// the friction cone derived from its companion normal constraint's last
// applied impulse, however large the tangential velocity driving it.
func TestFrictionConstraintBoundedByCone(t *testing.T) {
	floor := staticBox()
	box := dynamicBox(1)
	box.LinVel = geom.V3(0, fixed.FromFloat64(-1), 0)

	normal := NewPenetrationConstraint(floor, box, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))
	friction := NewSlidingFrictionConstraint(floor, box, geom.Vector3{}, geom.Vector3{}, geom.V3(fixed.One, 0, 0), normal)

	box.LinVel = box.LinVel.Add(geom.V3(fixed.FromFloat64(100), 0, 0)) // huge tangential velocity

	dt := fixed.FromFloat64(1.0 / 60)
	for i := 0; i < 30; i++ {
		normal.PreStep(dt)
		friction.PreStep(dt)
		normal.WarmStart()
		friction.WarmStart()
		for j := 0; j < 4; j++ {
			normal.Solve(dt)
			friction.Solve(dt)
		}
		bound := normal.AppliedImpulse.SafeMul(friction.Friction)
		if friction.AppliedImpulse.Abs() > bound.SafeAdd(fixed.Epsilon) {
			t.Fatalf("iteration %d: friction impulse %v exceeds cone bound %v", i, friction.AppliedImpulse.Float64(), bound.Float64())
		}
	}
}

// TestBallJointConverges asserts that a BallJoint drives its two anchors
// together over successive solves, the basic correctness property every
// joint in this package relies on.
func TestBallJointConverges(t *testing.T) {
	a := staticBox()
	b := dynamicBox(1)
	b.World.Pos = geom.V3(fixed.FromFloat64(3), 0, 0)

	j := NewBallJoint(a, b, geom.Vector3{}, geom.Vector3{})
	dt := fixed.FromFloat64(1.0 / 60)

	initialErr := b.World.Pos.Len()
	for i := 0; i < 120; i++ {
		j.PreStep(dt)
		j.WarmStart()
		for k := 0; k < 4; k++ {
			j.Solve(dt)
		}
		b.Integrate(dt)
	}
	finalErr := b.World.Pos.Len()
	if finalErr >= initialErr {
		t.Errorf("expected ball joint to reduce anchor separation from %v, got %v", initialErr.Float64(), finalErr.Float64())
	}
}

// TestDistanceLimitOnlyPushesOutOfRange asserts a DistanceLimit stays
// inactive (zero impulse) while inside [Min, Max], matching every other
// inequality constraint's one-sided behavior.
func TestDistanceLimitOnlyPushesOutOfRange(t *testing.T) {
	a := staticBox()
	b := dynamicBox(1)
	b.World.Pos = geom.V3(fixed.FromFloat64(2), 0, 0) // within [1, 3]

	l := NewDistanceLimit(a, b, geom.Vector3{}, geom.Vector3{}, fixed.One, fixed.FromFloat64(3))
	dt := fixed.FromFloat64(1.0 / 60)
	l.PreStep(dt)
	if l.active {
		t.Error("expected limit to be inactive within range")
	}
	l.Solve(dt)
	if l.row.AppliedImpulse != 0 {
		t.Errorf("expected zero impulse while within range, got %v", l.row.AppliedImpulse.Float64())
	}
}
