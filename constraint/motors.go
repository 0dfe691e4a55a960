package constraint

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Motors drive relative velocity toward a target instead of toward zero,
// with the applied impulse bounded by MaxForce*dt (the actuator's torque/
// force limit) rather than by a one-sided inequality — grounded on the same
// clamped sequential-impulse shape as the rest of this package, generalized
// from solver.go's constant lowerLimit/upperLimit contact bound to a
// symmetric, per-tick force-limited bound.

// AngularMotor drives the relative angular velocity about Axis toward
// TargetVelocity, bounded by the torque implied by MaxTorque.
type AngularMotor struct {
	A, B         *entity.Entity
	LocalAxisA   geom.Vector3
	TargetVelocity fixed.Fix64
	MaxTorque      fixed.Fix64

	row angularRow
}

// NewAngularMotor builds an AngularMotor about LocalAxisA.
func NewAngularMotor(a, b *entity.Entity, localAxisA geom.Vector3, targetVelocity, maxTorque fixed.Fix64) *AngularMotor {
	return &AngularMotor{A: a, B: b, LocalAxisA: localAxisA, TargetVelocity: targetVelocity, MaxTorque: maxTorque}
}

func (m *AngularMotor) PreStep(dt fixed.Fix64) {
	axis := m.A.World.ToWorldDir(m.LocalAxisA).Unit()
	m.row = angularRow{A: m.A, B: m.B, Axis: axis, AppliedImpulse: m.row.AppliedImpulse}
	k := pureAngularTerm(m.A.InvInertiaWorld(), axis).SafeAdd(pureAngularTerm(m.B.InvInertiaWorld(), axis))
	if k.AeqZero() {
		m.row.effMass = 0
	} else {
		m.row.effMass = fixed.One.SafeDiv(k)
	}
	m.row.Bias = m.TargetVelocity
}

func (m *AngularMotor) WarmStart() { m.row.warmStart() }

func (m *AngularMotor) Solve(dt fixed.Fix64) {
	delta := m.row.Bias.SafeSub(m.row.relativeSpin()).SafeMul(m.row.effMass)
	bound := m.MaxTorque.SafeMul(dt)
	applied, newAccum := clampedAccumulate(m.row.AppliedImpulse, delta, bound.Neg(), bound)
	m.row.AppliedImpulse = newAccum
	m.row.applyAngular(applied)
}

func (m *AngularMotor) Clear() { m.row.clear() }

// LinearMotor drives the relative linear velocity of a point on B, relative
// to a point on A, along LocalAxisA toward TargetVelocity, bounded by the
// force implied by MaxForce.
type LinearMotor struct {
	A, B                       *entity.Entity
	LocalAnchorA, LocalAxisA   geom.Vector3
	LocalAnchorB               geom.Vector3
	TargetVelocity             fixed.Fix64
	MaxForce                   fixed.Fix64

	row axisRow
}

// NewLinearMotor builds a LinearMotor along LocalAxisA.
func NewLinearMotor(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3, targetVelocity, maxForce fixed.Fix64) *LinearMotor {
	return &LinearMotor{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, TargetVelocity: targetVelocity, MaxForce: maxForce}
}

func (m *LinearMotor) PreStep(dt fixed.Fix64) {
	axis := m.A.World.ToWorldDir(m.LocalAxisA).Unit()
	ra := leverArm(m.A, m.LocalAnchorA)
	rb := leverArm(m.B, m.LocalAnchorB)
	m.row = axisRow{A: m.A, B: m.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: m.row.AppliedImpulse}
	m.row.effMass = effectiveMass(m.A, m.B, ra, rb, axis)
	m.row.Bias = m.TargetVelocity
}

func (m *LinearMotor) WarmStart() { m.row.warmStart() }

func (m *LinearMotor) Solve(dt fixed.Fix64) {
	closingSpeed := relativeVelocity(m.A, m.B, m.row.AnchorA, m.row.AnchorB, m.row.Axis)
	delta := m.row.Bias.SafeSub(closingSpeed).SafeMul(m.row.effMass)
	bound := m.MaxForce.SafeMul(dt)
	applied, newAccum := clampedAccumulate(m.row.AppliedImpulse, delta, bound.Neg(), bound)
	m.row.AppliedImpulse = newAccum
	impulse := m.row.Axis.Scale(applied)
	applyImpulse(m.A, impulse.Neg(), m.row.AnchorA)
	applyImpulse(m.B, impulse, m.row.AnchorB)
}

func (m *LinearMotor) Clear() { m.row.clear() }

// ServoMotor drives a LinearAxisLimit-style point on B toward a target
// position along LocalAxisA (rather than a target velocity), by folding a
// proportional position-error term into the bias the way the joint rows
// do — the "servo" mode found alongside velocity motors in most rigid-body
// engines' prismatic/hinge joint APIs.
type ServoMotor struct {
	A, B                       *entity.Entity
	LocalAnchorA, LocalAxisA   geom.Vector3
	LocalAnchorB               geom.Vector3
	TargetPosition             fixed.Fix64
	MaxForce                   fixed.Fix64
	ERP                        fixed.Fix64

	row axisRow
}

// NewServoMotor builds a ServoMotor driving toward targetPosition along
// LocalAxisA.
func NewServoMotor(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3, targetPosition, maxForce fixed.Fix64) *ServoMotor {
	return &ServoMotor{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, TargetPosition: targetPosition, MaxForce: maxForce, ERP: defaultJointERP}
}

func (m *ServoMotor) PreStep(dt fixed.Fix64) {
	axis := m.A.World.ToWorldDir(m.LocalAxisA).Unit()
	ra := leverArm(m.A, m.LocalAnchorA)
	rb := leverArm(m.B, m.LocalAnchorB)
	disp := worldAnchor(m.B, m.LocalAnchorB).Sub(worldAnchor(m.A, m.LocalAnchorA)).Dot(axis)
	m.row = axisRow{A: m.A, B: m.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: m.row.AppliedImpulse}
	m.row.preStep(disp.SafeSub(m.TargetPosition), m.ERP, dt)
}

func (m *ServoMotor) WarmStart() { m.row.warmStart() }

func (m *ServoMotor) Solve(dt fixed.Fix64) {
	closingSpeed := relativeVelocity(m.A, m.B, m.row.AnchorA, m.row.AnchorB, m.row.Axis)
	delta := m.row.Bias.SafeSub(closingSpeed).SafeMul(m.row.effMass)
	bound := m.MaxForce.SafeMul(dt)
	applied, newAccum := clampedAccumulate(m.row.AppliedImpulse, delta, bound.Neg(), bound)
	m.row.AppliedImpulse = newAccum
	impulse := m.row.Axis.Scale(applied)
	applyImpulse(m.A, impulse.Neg(), m.row.AnchorA)
	applyImpulse(m.B, impulse, m.row.AnchorB)
}

func (m *ServoMotor) Clear() { m.row.clear() }
