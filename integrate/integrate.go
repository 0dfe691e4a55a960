// Package integrate implements §4.6 steps 4 and 5: per-entity
// orientation/position integration (including the CCD continuous updater)
// and damping/ultra-damping. Grounded on the teacher's physics/body.go
// (integrateVelocities, updateWorldTransform, updatePredictedTransform,
// applyDamping) and physics/caster.go for the sweep/TOI shape, generalized
// from the teacher's single discrete-update path into the spec's combined
// discrete/CCD integration step.
package integrate

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/narrowphase"
)

// Config holds the integrator's tunables for ultra-damping (§4.6 step 5).
type Config struct {
	// UltraDampingThreshold is the kinetic-energy cutoff below which a
	// body starts accumulating ultra-damping time.
	UltraDampingThreshold fixed.Fix64
	// UltraDampingDelay is how long a body must stay below the threshold
	// before the extra damping factor engages.
	UltraDampingDelay fixed.Fix64
	// UltraDampingFactor is the additional per-tick velocity multiplier
	// applied once a body has qualified (on top of normal damping).
	UltraDampingFactor fixed.Fix64
}

// DefaultConfig mirrors §4.6's stated defaults for the quiet-residual-
// motion behavior.
func DefaultConfig() Config {
	return Config{
		UltraDampingThreshold: fixed.FromFloat64(0.01),
		UltraDampingDelay:     fixed.FromFloat64(0.5),
		UltraDampingFactor:    fixed.FromFloat64(0.05),
	}
}

// CCDCandidate is one other body a CCD entity might sweep into this tick,
// supplied by the caller (ordinarily the broad phase's swept-AABB query
// against e's predicted transform).
type CCDCandidate struct {
	Other *entity.Entity
}

// Step advances e's orientation and position by dt and applies damping
// (§4.6 steps 4 and 5). Static/kinematic entities are left untouched.
//
// For a non-CCD entity this is a single discrete update: rotate and
// translate by the full step. For a CCD entity, candidates lists every
// other body the broad phase reports as possibly swept-intersecting this
// tick; Step computes each candidate's time of impact via
// narrowphase.TimeOfImpact, keeps the minimum, rotates by the full step
// but translates only by that fraction of the linear step (§4.6 step 4c:
// "translate by v*dt*min_toi; times of impact reset to 1 each tick"), and
// returns the toi actually used (1 when no candidate reported a collision).
func Step(e *entity.Entity, dt fixed.Fix64, cfg Config, candidates []CCDCandidate) fixed.Fix64 {
	if !e.Movable() {
		return fixed.One
	}

	toi := fixed.One
	if e.CCD && len(candidates) > 0 {
		toi = minTOI(e, dt, candidates)
	}
	e.IntegrateScaled(dt, toi)

	e.ApplyDamping(dt)
	applyUltraDamping(e, dt, cfg)
	return toi
}

// minTOI returns the smallest time of impact among candidates, reset to 1
// every call (§4.6 step 4c: "times of impact reset to 1 each tick").
func minTOI(e *entity.Entity, dt fixed.Fix64, candidates []CCDCandidate) fixed.Fix64 {
	min := fixed.One
	for _, c := range candidates {
		toi, hit := narrowphase.TimeOfImpact(
			e.Shape, e.World, e.LinVel, e.AngVel,
			c.Other.Shape, c.Other.World, c.Other.LinVel, c.Other.AngVel,
			dt,
		)
		if hit && toi < min {
			min = toi
		}
	}
	return min
}

// applyUltraDamping tracks how long e has sat below cfg.UltraDampingThreshold
// and, once it has done so for cfg.UltraDampingDelay, applies an extra
// damping multiplier on top of the normal per-tick damping (§4.6 step 5).
// Any velocity above the threshold resets the timer, matching the wake
// behavior of the island deactivation candidate timer this mirrors.
func applyUltraDamping(e *entity.Entity, dt fixed.Fix64, cfg Config) {
	if e.KineticEnergy() < cfg.UltraDampingThreshold {
		e.UltraDampTime = e.UltraDampTime.SafeAdd(dt)
	} else {
		e.UltraDampTime = 0
	}
	if e.UltraDampTime >= cfg.UltraDampingDelay {
		e.UltraDamp(fixed.One.SafeSub(cfg.UltraDampingFactor))
	}
}
