package integrate

import (
	"testing"

	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

func dynamicSphere(radius, mass float64) *entity.Entity {
	e := entity.New(shape.NewSphere(fixed.FromFloat64(radius), 0))
	e.SetMaterial(fixed.FromFloat64(mass), entity.DefaultMaterial)
	return e
}

func staticPlaneAt(z float64) *entity.Entity {
	e := entity.New(shape.NewBox(fixed.FromFloat64(1000), fixed.FromFloat64(1000), fixed.FromFloat64(1), 0))
	e.SetMaterial(0, entity.DefaultMaterial)
	e.World = geom.RigidTransform{Pos: geom.V3(0, 0, fixed.FromFloat64(z+1)), Rot: geom.QIdentity}
	return e
}

// TestCCDBulletDoesNotTunnel exercises §8 scenario 5: a fast sphere headed
// into a static wall, with CCD enabled, must stop at or before the wall
// rather than passing through it, and report a time of impact in (0,1].
func TestCCDBulletDoesNotTunnel(t *testing.T) {
	wall := staticPlaneAt(10) // wall's near face sits at z=10.
	ball := dynamicSphere(0.1, 1)
	ball.CCD = true
	ball.LinVel = geom.V3(0, 0, fixed.FromFloat64(1000))

	dt := fixed.FromFloat64(1.0 / 60)
	toi := Step(ball, dt, DefaultConfig(), []CCDCandidate{{Other: wall}})

	if toi <= 0 || toi > fixed.One {
		t.Fatalf("expected time of impact in (0,1], got %v", toi.Float64())
	}
	if ball.World.Pos.Z.Float64() > 10.0+1e-3 {
		t.Fatalf("CCD sphere tunneled: final z=%v, want <= 10+eps", ball.World.Pos.Z.Float64())
	}
}

// TestDiscreteBulletTunnels is the regression guard half of §8 scenario 5:
// the same setup without CCD passes straight through in one tick.
func TestDiscreteBulletTunnels(t *testing.T) {
	ball := dynamicSphere(0.1, 1)
	ball.LinVel = geom.V3(0, 0, fixed.FromFloat64(1000))

	dt := fixed.FromFloat64(1.0 / 60)
	Step(ball, dt, DefaultConfig(), nil)

	if ball.World.Pos.Z.Float64() <= 10.0 {
		t.Fatalf("expected the discrete (non-CCD) sphere to tunnel past z=10, got z=%v", ball.World.Pos.Z.Float64())
	}
}

// TestUltraDampingEngagesAfterDelay asserts a slow body's velocity decays
// faster once it has sat below the threshold for UltraDampingDelay.
func TestUltraDampingEngagesAfterDelay(t *testing.T) {
	ball := dynamicSphere(0.5, 1)
	ball.LinVel = geom.V3(fixed.FromFloat64(0.001), 0, 0)

	cfg := DefaultConfig()
	dt := fixed.FromFloat64(1.0 / 60)

	// Drive enough ticks to exceed UltraDampingDelay.
	ticks := int(cfg.UltraDampingDelay.Float64()/dt.Float64()) + 5
	var beforeEngage, afterEngage fixed.Fix64
	for i := 0; i < ticks; i++ {
		before := ball.LinVel.Len()
		Step(ball, dt, cfg, nil)
		after := ball.LinVel.Len()
		if i == 0 {
			beforeEngage = before.SafeSub(after)
		}
		if i == ticks-1 {
			afterEngage = before.SafeSub(after)
		}
	}
	if afterEngage < beforeEngage {
		t.Fatalf("expected ultra-damping to increase per-tick velocity loss once engaged: first-tick delta=%v, last-tick delta=%v", beforeEngage.Float64(), afterEngage.Float64())
	}
}

// TestStaticEntityUnaffected asserts Step is a no-op for immovable bodies.
func TestStaticEntityUnaffected(t *testing.T) {
	wall := staticPlaneAt(0)
	before := wall.World
	toi := Step(wall, fixed.FromFloat64(1.0/60), DefaultConfig(), nil)
	if toi != fixed.One {
		t.Fatalf("expected a static body's step to report toi=1, got %v", toi.Float64())
	}
	if wall.World != before {
		t.Fatal("expected a static body's transform to be untouched by Step")
	}
}
