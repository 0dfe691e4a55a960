// Package constraint implements the velocity-level constraints the solver
// iterates over (§4.5): contact penetration/friction, joints, limits, and
// motors. Every constraint type shares the same sequential-impulse shape —
// PreStep computes the jacobian/effective mass/bias once per tick,
// WarmStart re-applies the previous tick's accumulated impulse, Solve runs
// one Gauss-Seidel iteration clamping the accumulated impulse to the
// constraint's bounds — grounded on the teacher's physics/solver.go
// solverConstraint (jacDiagABInv, rhs, lowerLimit/upperLimit, appliedImpulse)
// generalized from a two-constraint-per-contact special case into a general
// interface every joint/limit/motor also implements.
package constraint

import (
	"log/slog"

	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Constraint is one row of the velocity-level system the solver iterates.
type Constraint interface {
	// PreStep computes the jacobian, effective mass and bias term from the
	// current (pre-solve) body state; called once per tick before solving.
	PreStep(dt fixed.Fix64)
	// WarmStart re-applies the full impulse accumulated on the previous
	// tick before the first iteration.
	WarmStart()
	// Solve runs one sequential-impulse (PGS) iteration.
	Solve(dt fixed.Fix64)
	// Clear zeroes the accumulated impulse (used when a constraint is
	// newly created or its bodies have gone to sleep and woken again).
	Clear()
}

// angularTerm returns n . ((I^-1 (r x n)) x r) — the angular contribution to
// a single-axis constraint's effective-mass denominator.
func angularTerm(invInertia geom.Matrix3x3, r, axis geom.Vector3) fixed.Fix64 {
	rCrossAxis := r.Cross(axis)
	angImpulse := rCrossAxis.MulM3(invInertia)
	return angImpulse.Cross(r).Dot(axis)
}

// effectiveMass returns the reciprocal effective mass (1/k) of a
// single-axis point constraint between a and b with lever arms ra, rb
// about axis, grounded on solver.go's jacDiagABInv. k==0 is a
// DegenerateConfiguration (an ill-conditioned jacobian, e.g. both bodies
// kinematic along axis): recovered locally by returning a zero effective
// mass, which makes every Solve call on this row a no-op for the tick
// rather than a divide-by-zero, and is logged at Debug rather than
// surfaced.
func effectiveMass(a, b *entity.Entity, ra, rb, axis geom.Vector3) fixed.Fix64 {
	k := a.InvMass().SafeAdd(b.InvMass())
	k = k.SafeAdd(angularTerm(a.InvInertiaWorld(), ra, axis))
	k = k.SafeAdd(angularTerm(b.InvInertiaWorld(), rb, axis))
	if k.AeqZero() {
		slog.Debug("constraint: degenerate jacobian, deactivating row for this tick", "axis", axis)
		return 0
	}
	return fixed.One.SafeDiv(k)
}

// relativeVelocity returns (velocity of b's anchor - velocity of a's
// anchor) . axis, the closing speed along axis (positive = separating).
func relativeVelocity(a, b *entity.Entity, ra, rb, axis geom.Vector3) fixed.Fix64 {
	va := a.VelocityAtLocalPoint(ra)
	vb := b.VelocityAtLocalPoint(rb)
	return vb.Sub(va).Dot(axis)
}

// applyImpulse applies impulse (acting at lever arm r from a's center of
// mass) to a's linear/angular velocity; static/kinematic bodies ignore it.
func applyImpulse(a *entity.Entity, impulse, r geom.Vector3) {
	if !a.Movable() {
		return
	}
	a.LinVel = a.LinVel.Add(impulse.Scale(a.InvMass()))
	a.AngVel = a.AngVel.Add(r.Cross(impulse).MulM3(a.InvInertiaWorld()))
}

// clampedAccumulate adds delta to accumulated, clamps the sum to [lo, hi],
// and returns the impulse actually applied (the clamped delta) alongside
// the new accumulated total — the "clamp after accumulate" pattern every
// constraint in this package uses to avoid ratcheting the impulse outside
// its bound one iteration at a time.
func clampedAccumulate(accumulated, delta, lo, hi fixed.Fix64) (applied, newAccumulated fixed.Fix64) {
	newAccumulated = fixed.Clamp(accumulated.SafeAdd(delta), lo, hi)
	applied = newAccumulated.SafeSub(accumulated)
	return applied, newAccumulated
}
