package constraint

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Limits are one-sided inequality rows (like PenetrationConstraint) built
// on the same axisRow/angularRow plumbing joints use: they only push back
// once a bound is exceeded, clamped so they never pull a body past the
// bound in the other direction.

// DistanceLimit keeps two anchors within [Min, Max] of each other (a
// "rope"/"rod" range instead of DistanceJoint's fixed length).
type DistanceLimit struct {
	A, B                         *entity.Entity
	LocalAnchorA, LocalAnchorB   geom.Vector3
	Min, Max                     fixed.Fix64
	ERP                          fixed.Fix64

	row    axisRow
	active bool
	pushIn bool // true: pushing anchors together (over Max); false: pushing apart (under Min)
}

// NewDistanceLimit builds a DistanceLimit bounding the anchor separation to [min, max].
func NewDistanceLimit(a, b *entity.Entity, localAnchorA, localAnchorB geom.Vector3, min, max fixed.Fix64) *DistanceLimit {
	return &DistanceLimit{A: a, B: b, LocalAnchorA: localAnchorA, LocalAnchorB: localAnchorB, Min: min, Max: max, ERP: defaultJointERP}
}

func (l *DistanceLimit) PreStep(dt fixed.Fix64) {
	ra := leverArm(l.A, l.LocalAnchorA)
	rb := leverArm(l.B, l.LocalAnchorB)
	delta := worldAnchor(l.B, l.LocalAnchorB).Sub(worldAnchor(l.A, l.LocalAnchorA))
	dist := delta.Len()
	axis := geom.V3(fixed.One, 0, 0)
	if !dist.AeqZero() {
		axis = delta.Scale(fixed.One.SafeDiv(dist))
	}

	l.active = false
	switch {
	case dist > l.Max:
		l.active, l.pushIn = true, true
		l.row = axisRow{A: l.A, B: l.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(dist.SafeSub(l.Max), l.ERP, dt)
	case dist < l.Min:
		l.active, l.pushIn = true, false
		l.row = axisRow{A: l.A, B: l.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(dist.SafeSub(l.Min), l.ERP, dt)
	default:
		l.row.clear()
	}
}

func (l *DistanceLimit) WarmStart() {
	if l.active {
		l.row.warmStart()
	}
}

func (l *DistanceLimit) Solve(dt fixed.Fix64) {
	if !l.active {
		return
	}
	closingSpeed := relativeVelocity(l.A, l.B, l.row.AnchorA, l.row.AnchorB, l.row.Axis)
	delta := l.row.Bias.SafeSub(closingSpeed).SafeMul(l.row.effMass)
	var lo, hi fixed.Fix64
	if l.pushIn {
		lo, hi = fixed.MinValue, 0 // only allowed to pull the anchors together
	} else {
		lo, hi = 0, fixed.MaxValue // only allowed to push the anchors apart
	}
	applied, newAccum := clampedAccumulate(l.row.AppliedImpulse, delta, lo, hi)
	l.row.AppliedImpulse = newAccum
	impulse := l.row.Axis.Scale(applied)
	applyImpulse(l.A, impulse.Neg(), l.row.AnchorA)
	applyImpulse(l.B, impulse, l.row.AnchorB)
}

func (l *DistanceLimit) Clear() { l.row.clear() }

// LinearAxisLimit bounds the signed displacement of a point on B from a
// point on A, measured along LocalAxisA, to [Min, Max] — e.g. a prismatic
// slider's travel limit.
type LinearAxisLimit struct {
	A, B                       *entity.Entity
	LocalAnchorA, LocalAxisA   geom.Vector3
	LocalAnchorB               geom.Vector3
	Min, Max                   fixed.Fix64
	ERP                        fixed.Fix64

	row    axisRow
	active bool
	atMax  bool
}

// NewLinearAxisLimit builds a LinearAxisLimit along LocalAxisA.
func NewLinearAxisLimit(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3, min, max fixed.Fix64) *LinearAxisLimit {
	return &LinearAxisLimit{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, Min: min, Max: max, ERP: defaultJointERP}
}

func (l *LinearAxisLimit) PreStep(dt fixed.Fix64) {
	axis := l.A.World.ToWorldDir(l.LocalAxisA).Unit()
	ra := leverArm(l.A, l.LocalAnchorA)
	rb := leverArm(l.B, l.LocalAnchorB)
	disp := worldAnchor(l.B, l.LocalAnchorB).Sub(worldAnchor(l.A, l.LocalAnchorA)).Dot(axis)

	l.active = false
	switch {
	case disp > l.Max:
		l.active, l.atMax = true, true
		l.row = axisRow{A: l.A, B: l.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(disp.SafeSub(l.Max), l.ERP, dt)
	case disp < l.Min:
		l.active, l.atMax = true, false
		l.row = axisRow{A: l.A, B: l.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(disp.SafeSub(l.Min), l.ERP, dt)
	default:
		l.row.clear()
	}
}

func (l *LinearAxisLimit) WarmStart() {
	if l.active {
		l.row.warmStart()
	}
}

func (l *LinearAxisLimit) Solve(dt fixed.Fix64) {
	if !l.active {
		return
	}
	closingSpeed := relativeVelocity(l.A, l.B, l.row.AnchorA, l.row.AnchorB, l.row.Axis)
	delta := l.row.Bias.SafeSub(closingSpeed).SafeMul(l.row.effMass)
	var lo, hi fixed.Fix64
	if l.atMax {
		lo, hi = fixed.MinValue, 0
	} else {
		lo, hi = 0, fixed.MaxValue
	}
	applied, newAccum := clampedAccumulate(l.row.AppliedImpulse, delta, lo, hi)
	l.row.AppliedImpulse = newAccum
	impulse := l.row.Axis.Scale(applied)
	applyImpulse(l.A, impulse.Neg(), l.row.AnchorA)
	applyImpulse(l.B, impulse, l.row.AnchorB)
}

func (l *LinearAxisLimit) Clear() { l.row.clear() }

// coneAngle returns the angle between a and b's world-space cone axes (both
// assumed unit length already).
func coneAngle(a, b geom.Vector3) fixed.Fix64 {
	d := fixed.Clamp(a.Dot(b), fixed.FromInt(-1), fixed.One)
	angle, err := d.Acos()
	if err != nil {
		return 0
	}
	return angle
}

// SwingLimit bounds the angle between B's LocalAxisB and A's LocalAxisA
// (the hinge-axis "swing" cone of a ragdoll-style joint) to at most
// MaxAngle.
type SwingLimit struct {
	A, B                       *entity.Entity
	LocalAxisA, LocalAxisB     geom.Vector3
	MaxAngle                   fixed.Fix64
	ERP                        fixed.Fix64

	row    angularRow
	active bool
}

// NewSwingLimit builds a SwingLimit bounding the cone angle between the two
// axes to maxAngle radians.
func NewSwingLimit(a, b *entity.Entity, localAxisA, localAxisB geom.Vector3, maxAngle fixed.Fix64) *SwingLimit {
	return &SwingLimit{A: a, B: b, LocalAxisA: localAxisA, LocalAxisB: localAxisB, MaxAngle: maxAngle, ERP: defaultJointERP}
}

func (l *SwingLimit) PreStep(dt fixed.Fix64) {
	axisA := l.A.World.ToWorldDir(l.LocalAxisA).Unit()
	axisB := l.B.World.ToWorldDir(l.LocalAxisB).Unit()
	angle := coneAngle(axisA, axisB)

	l.active = angle > l.MaxAngle
	if !l.active {
		l.row.clear()
		return
	}
	// The limit axis is the direction pushing the swing back into the cone:
	// perpendicular to axisA, in the plane containing axisA and axisB.
	axis := axisA.Cross(axisB)
	if axis.AeqZero() {
		l.active = false
		l.row.clear()
		return
	}
	axis = axis.Unit()
	l.row = angularRow{A: l.A, B: l.B, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
	l.row.preStep(l.MaxAngle.SafeSub(angle), l.ERP, dt)
}

func (l *SwingLimit) WarmStart() {
	if l.active {
		l.row.warmStart()
	}
}

func (l *SwingLimit) Solve(dt fixed.Fix64) {
	if !l.active {
		return
	}
	delta := l.row.Bias.SafeSub(l.row.relativeSpin()).SafeMul(l.row.effMass)
	applied, newAccum := clampedAccumulate(l.row.AppliedImpulse, delta, fixed.MinValue, 0)
	l.row.AppliedImpulse = newAccum
	l.row.applyAngular(applied)
}

func (l *SwingLimit) Clear() { l.row.clear() }

// TwistLimit bounds relative spin about a shared axis (e.g. the free twist
// DOF of a UniversalJoint) to [Min, Max] radians.
type TwistLimit struct {
	A, B         *entity.Entity
	LocalAxisA   geom.Vector3
	Min, Max     fixed.Fix64
	ERP          fixed.Fix64

	row    angularRow
	active bool
	atMax  bool
}

// NewTwistLimit builds a TwistLimit about LocalAxisA, bounding relative
// twist angle to [min, max] radians.
func NewTwistLimit(a, b *entity.Entity, localAxisA geom.Vector3, min, max fixed.Fix64) *TwistLimit {
	return &TwistLimit{A: a, B: b, LocalAxisA: localAxisA, Min: min, Max: max, ERP: defaultJointERP}
}

func (l *TwistLimit) twistAngle() fixed.Fix64 {
	axis := l.A.World.ToWorldDir(l.LocalAxisA).Unit()
	rel := l.B.World.Rot.Mul(l.A.World.Rot.Conjugate())
	// small-angle twist about axis, linearized from the relative
	// quaternion's imaginary part (same approximation NoRotationJoint uses).
	return geom.V3(rel.X, rel.Y, rel.Z).Scale(fixed.Two).Dot(axis)
}

func (l *TwistLimit) PreStep(dt fixed.Fix64) {
	axis := l.A.World.ToWorldDir(l.LocalAxisA).Unit()
	angle := l.twistAngle()

	l.active = false
	switch {
	case angle > l.Max:
		l.active, l.atMax = true, true
		l.row = angularRow{A: l.A, B: l.B, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(angle.SafeSub(l.Max).Neg(), l.ERP, dt)
	case angle < l.Min:
		l.active, l.atMax = true, false
		l.row = angularRow{A: l.A, B: l.B, Axis: axis, AppliedImpulse: l.row.AppliedImpulse}
		l.row.preStep(angle.SafeSub(l.Min).Neg(), l.ERP, dt)
	default:
		l.row.clear()
	}
}

func (l *TwistLimit) WarmStart() {
	if l.active {
		l.row.warmStart()
	}
}

func (l *TwistLimit) Solve(dt fixed.Fix64) {
	if !l.active {
		return
	}
	delta := l.row.Bias.SafeSub(l.row.relativeSpin()).SafeMul(l.row.effMass)
	var lo, hi fixed.Fix64
	if l.atMax {
		lo, hi = fixed.MinValue, 0
	} else {
		lo, hi = 0, fixed.MaxValue
	}
	applied, newAccum := clampedAccumulate(l.row.AppliedImpulse, delta, lo, hi)
	l.row.AppliedImpulse = newAccum
	l.row.applyAngular(applied)
}

func (l *TwistLimit) Clear() { l.row.clear() }

// RevoluteLimit bounds a RevoluteJoint's free spin angle about its hinge
// axis to [Min, Max] — the hinge counterpart of TwistLimit, reusing the
// same small-angle twist measurement about LocalAxisA.
type RevoluteLimit = TwistLimit

// NewRevoluteLimit builds a RevoluteLimit (an alias of TwistLimit) bounding
// spin about the hinge axis.
func NewRevoluteLimit(a, b *entity.Entity, localHingeAxisA geom.Vector3, min, max fixed.Fix64) *RevoluteLimit {
	return NewTwistLimit(a, b, localHingeAxisA, min, max)
}
