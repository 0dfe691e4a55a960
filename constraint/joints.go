package constraint

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Joints are built from the same sequential-impulse rows as contacts, but
// solve for equality (bias-corrected zero relative velocity along an axis,
// unbounded impulse) instead of a one-sided inequality. This generalizes
// pbd_base_constraints.go's XPBD position-correction loop (delta_lambda,
// compliance/h^2, positional_constraint_apply) from a position-level
// solve into the velocity-level bias/softness model the rest of this
// package already uses — see DESIGN.md's constraint entry.

// axisRow is one equality constraint row: drive relative velocity along
// Axis toward Bias, which preStep sets to -positionError*erp/dt (a
// Baumgarte position-correction term), unbounded impulse. Shared by every
// joint type below.
type axisRow struct {
	A, B             *entity.Entity
	AnchorA, AnchorB geom.Vector3
	Axis             geom.Vector3
	Bias             fixed.Fix64

	effMass        fixed.Fix64
	AppliedImpulse fixed.Fix64
}

func (r *axisRow) preStep(positionError, erp, dt fixed.Fix64) {
	r.effMass = effectiveMass(r.A, r.B, r.AnchorA, r.AnchorB, r.Axis)
	r.Bias = positionError.SafeMul(erp).SafeDiv(dt).Neg()
}

func (r *axisRow) warmStart() {
	impulse := r.Axis.Scale(r.AppliedImpulse)
	applyImpulse(r.A, impulse.Neg(), r.AnchorA)
	applyImpulse(r.B, impulse, r.AnchorB)
}

func (r *axisRow) solve() {
	closingSpeed := relativeVelocity(r.A, r.B, r.AnchorA, r.AnchorB, r.Axis)
	delta := r.Bias.SafeSub(closingSpeed).SafeMul(r.effMass)
	r.AppliedImpulse = r.AppliedImpulse.SafeAdd(delta)
	impulse := r.Axis.Scale(delta)
	applyImpulse(r.A, impulse.Neg(), r.AnchorA)
	applyImpulse(r.B, impulse, r.AnchorB)
}

func (r *axisRow) clear() { r.AppliedImpulse = 0 }

// pureAngularTerm returns axis . (invInertia * axis), the denominator
// contribution of a torque-only (no lever arm) angular equality row.
func pureAngularTerm(invInertia geom.Matrix3x3, axis geom.Vector3) fixed.Fix64 {
	return axis.Dot(axis.MulM3(invInertia))
}

// angularRow drives relative angular velocity about Axis toward zero, with
// no lever arm (a pure couple) — used by NoRotationJoint, RevoluteJoint and
// UniversalJoint to hold their free rotational axes aligned.
type angularRow struct {
	A, B *entity.Entity
	Axis geom.Vector3
	Bias fixed.Fix64

	effMass        fixed.Fix64
	AppliedImpulse fixed.Fix64
}

func (r *angularRow) preStep(positionError, erp, dt fixed.Fix64) {
	k := pureAngularTerm(r.A.InvInertiaWorld(), r.Axis).SafeAdd(pureAngularTerm(r.B.InvInertiaWorld(), r.Axis))
	if k.AeqZero() {
		r.effMass = 0
	} else {
		r.effMass = fixed.One.SafeDiv(k)
	}
	r.Bias = positionError.SafeMul(erp).SafeDiv(dt)
}

func (r *angularRow) relativeSpin() fixed.Fix64 {
	return r.B.AngVel.Sub(r.A.AngVel).Dot(r.Axis)
}

func (r *angularRow) applyAngular(magnitude fixed.Fix64) {
	impulse := r.Axis.Scale(magnitude)
	if r.A.Movable() {
		r.A.AngVel = r.A.AngVel.Sub(impulse.MulM3(r.A.InvInertiaWorld()))
	}
	if r.B.Movable() {
		r.B.AngVel = r.B.AngVel.Add(impulse.MulM3(r.B.InvInertiaWorld()))
	}
}

func (r *angularRow) warmStart() { r.applyAngular(r.AppliedImpulse) }

func (r *angularRow) solve() {
	delta := r.Bias.SafeSub(r.relativeSpin()).SafeMul(r.effMass)
	r.AppliedImpulse = r.AppliedImpulse.SafeAdd(delta)
	r.applyAngular(delta)
}

func (r *angularRow) clear() { r.AppliedImpulse = 0 }

// defaultJointERP matches the teacher's general Baumgarte factor (0.2);
// joints use the same default as contacts.
var defaultJointERP = defaultERP

// worldAnchor returns the world-space position of a body-local anchor.
func worldAnchor(e *entity.Entity, local geom.Vector3) geom.Vector3 {
	return e.World.ToWorld(local)
}

// leverArm returns the world-space offset from e's center of mass to a
// body-local anchor (a pure rotation of the local offset).
func leverArm(e *entity.Entity, local geom.Vector3) geom.Vector3 {
	return e.World.ToWorldDir(local)
}

// perpendicularAxes returns two unit vectors orthogonal to axis and to each
// other, used by joints that constrain rotation/translation around a single
// free axis.
func perpendicularAxes(axis geom.Vector3) (geom.Vector3, geom.Vector3) {
	axis = axis.Unit()
	ref := geom.V3(fixed.One, 0, 0)
	if axis.Cross(ref).AeqZero() {
		ref = geom.V3(0, fixed.One, 0)
	}
	u := axis.Cross(ref).Unit()
	v := axis.Cross(u).Unit()
	return u, v
}

// BallJoint holds a point on A coincident with a point on B (3 translational
// DOF removed, rotation free) — grounded on
// calculate_positional_constraint_preprocessed_data's r1_wc/r2_wc anchors,
// generalized to 3 independent world-axis velocity rows.
type BallJoint struct {
	A, B             *entity.Entity
	LocalAnchorA     geom.Vector3
	LocalAnchorB     geom.Vector3
	ERP              fixed.Fix64
	rows             [3]axisRow
}

// NewBallJoint builds a BallJoint between a and b at their respective
// local-space anchors.
func NewBallJoint(a, b *entity.Entity, localAnchorA, localAnchorB geom.Vector3) *BallJoint {
	return &BallJoint{A: a, B: b, LocalAnchorA: localAnchorA, LocalAnchorB: localAnchorB, ERP: defaultJointERP}
}

var worldAxes = [3]geom.Vector3{geom.V3(fixed.One, 0, 0), geom.V3(0, fixed.One, 0), geom.V3(0, 0, fixed.One)}

func (j *BallJoint) PreStep(dt fixed.Fix64) {
	ra := leverArm(j.A, j.LocalAnchorA)
	rb := leverArm(j.B, j.LocalAnchorB)
	err := worldAnchor(j.B, j.LocalAnchorB).Sub(worldAnchor(j.A, j.LocalAnchorA))
	for i, axis := range worldAxes {
		j.rows[i] = axisRow{A: j.A, B: j.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: j.rows[i].AppliedImpulse}
		j.rows[i].preStep(err.Dot(axis), j.ERP, dt)
	}
}

func (j *BallJoint) WarmStart() { for i := range j.rows { j.rows[i].warmStart() } }
func (j *BallJoint) Solve(dt fixed.Fix64) { for i := range j.rows { j.rows[i].solve() } }
func (j *BallJoint) Clear() { for i := range j.rows { j.rows[i].clear() } }

// DistanceJoint holds two anchors a fixed Distance apart along the line
// connecting them (1 DOF removed) — grounded on the same positional-
// constraint shape as BallJoint, reduced to a single axis.
type DistanceJoint struct {
	A, B         *entity.Entity
	LocalAnchorA geom.Vector3
	LocalAnchorB geom.Vector3
	Distance     fixed.Fix64
	ERP          fixed.Fix64
	row          axisRow
}

// NewDistanceJoint builds a DistanceJoint holding the anchors `distance`
// apart.
func NewDistanceJoint(a, b *entity.Entity, localAnchorA, localAnchorB geom.Vector3, distance fixed.Fix64) *DistanceJoint {
	return &DistanceJoint{A: a, B: b, LocalAnchorA: localAnchorA, LocalAnchorB: localAnchorB, Distance: distance, ERP: defaultJointERP}
}

func (j *DistanceJoint) PreStep(dt fixed.Fix64) {
	ra := leverArm(j.A, j.LocalAnchorA)
	rb := leverArm(j.B, j.LocalAnchorB)
	delta := worldAnchor(j.B, j.LocalAnchorB).Sub(worldAnchor(j.A, j.LocalAnchorA))
	dist := delta.Len()
	axis := geom.V3(fixed.One, 0, 0)
	if !dist.AeqZero() {
		axis = delta.Scale(fixed.One.SafeDiv(dist))
	}
	j.row = axisRow{A: j.A, B: j.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: j.row.AppliedImpulse}
	j.row.preStep(dist.SafeSub(j.Distance), j.ERP, dt)
}

func (j *DistanceJoint) WarmStart()       { j.row.warmStart() }
func (j *DistanceJoint) Solve(dt fixed.Fix64) { j.row.solve() }
func (j *DistanceJoint) Clear()           { j.row.clear() }

// PointOnLineJoint constrains a point on B to lie along a line, anchored at
// a point on A, running along LocalAxisA (2 translational DOF removed,
// sliding along the line and all rotation remain free).
type PointOnLineJoint struct {
	A, B         *entity.Entity
	LocalAnchorA geom.Vector3
	LocalAxisA   geom.Vector3
	LocalAnchorB geom.Vector3
	ERP          fixed.Fix64
	rows         [2]axisRow
}

// NewPointOnLineJoint builds a PointOnLineJoint.
func NewPointOnLineJoint(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3) *PointOnLineJoint {
	return &PointOnLineJoint{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, ERP: defaultJointERP}
}

func (j *PointOnLineJoint) PreStep(dt fixed.Fix64) {
	axisWorld := j.A.World.ToWorldDir(j.LocalAxisA)
	u, v := perpendicularAxes(axisWorld)
	ra := leverArm(j.A, j.LocalAnchorA)
	rb := leverArm(j.B, j.LocalAnchorB)
	err := worldAnchor(j.B, j.LocalAnchorB).Sub(worldAnchor(j.A, j.LocalAnchorA))
	axes := [2]geom.Vector3{u, v}
	for i, axis := range axes {
		j.rows[i] = axisRow{A: j.A, B: j.B, AnchorA: ra, AnchorB: rb, Axis: axis, AppliedImpulse: j.rows[i].AppliedImpulse}
		j.rows[i].preStep(err.Dot(axis), j.ERP, dt)
	}
}

func (j *PointOnLineJoint) WarmStart()       { for i := range j.rows { j.rows[i].warmStart() } }
func (j *PointOnLineJoint) Solve(dt fixed.Fix64) { for i := range j.rows { j.rows[i].solve() } }
func (j *PointOnLineJoint) Clear()           { for i := range j.rows { j.rows[i].clear() } }

// NoRotationJoint locks the relative orientation of two bodies (3 angular
// DOF removed, translation free) — grounded on the same preprocessed-data
// shape as the positional joints, applied purely to angular velocity.
type NoRotationJoint struct {
	A, B *entity.Entity
	ERP  fixed.Fix64
	rows [3]angularRow
}

// NewNoRotationJoint builds a NoRotationJoint.
func NewNoRotationJoint(a, b *entity.Entity) *NoRotationJoint {
	return &NoRotationJoint{A: a, B: b, ERP: defaultJointERP}
}

func (j *NoRotationJoint) PreStep(dt fixed.Fix64) {
	// Orientation error approximated by the imaginary part of the relative
	// quaternion (small-angle axis-angle), the standard linearization the
	// teacher's own USE_QUATERNIONS_LINEARIZED_FORMULAS path uses.
	rel := j.B.World.Rot.Mul(j.A.World.Rot.Conjugate())
	errVec := geom.V3(rel.X, rel.Y, rel.Z).Scale(fixed.Two)
	for i, axis := range worldAxes {
		j.rows[i] = angularRow{A: j.A, B: j.B, Axis: axis, AppliedImpulse: j.rows[i].AppliedImpulse}
		j.rows[i].preStep(errVec.Dot(axis).Neg(), j.ERP, dt)
	}
}

func (j *NoRotationJoint) WarmStart()       { for i := range j.rows { j.rows[i].warmStart() } }
func (j *NoRotationJoint) Solve(dt fixed.Fix64) { for i := range j.rows { j.rows[i].solve() } }
func (j *NoRotationJoint) Clear()           { for i := range j.rows { j.rows[i].clear() } }

// RevoluteJoint (hinge) removes all translational DOF (BallJoint) plus 2 of
// the 3 rotational DOF, leaving free spin about LocalAxisA.
type RevoluteJoint struct {
	A, B         *entity.Entity
	LocalAnchorA geom.Vector3
	LocalAxisA   geom.Vector3
	LocalAnchorB geom.Vector3
	ERP          fixed.Fix64

	point      BallJoint
	angular    [2]angularRow
}

// NewRevoluteJoint builds a RevoluteJoint hinging about LocalAxisA.
func NewRevoluteJoint(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3) *RevoluteJoint {
	j := &RevoluteJoint{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, ERP: defaultJointERP}
	j.point = *NewBallJoint(a, b, localAnchorA, localAnchorB)
	return j
}

func (j *RevoluteJoint) PreStep(dt fixed.Fix64) {
	j.point.ERP = j.ERP
	j.point.PreStep(dt)

	axisWorld := j.A.World.ToWorldDir(j.LocalAxisA)
	u, v := perpendicularAxes(axisWorld)
	// Error is the misalignment of B's hinge axis from A's, projected onto
	// each perpendicular: small when the hinge stays aligned.
	bAxisWorld := j.B.World.ToWorldDir(j.LocalAxisA)
	cross := axisWorld.Cross(bAxisWorld)
	axes := [2]geom.Vector3{u, v}
	for i, axis := range axes {
		j.angular[i] = angularRow{A: j.A, B: j.B, Axis: axis, AppliedImpulse: j.angular[i].AppliedImpulse}
		j.angular[i].preStep(cross.Dot(axis).Neg(), j.ERP, dt)
	}
}

func (j *RevoluteJoint) WarmStart() {
	j.point.WarmStart()
	for i := range j.angular {
		j.angular[i].warmStart()
	}
}

func (j *RevoluteJoint) Solve(dt fixed.Fix64) {
	j.point.Solve(dt)
	for i := range j.angular {
		j.angular[i].solve()
	}
}

func (j *RevoluteJoint) Clear() {
	j.point.Clear()
	for i := range j.angular {
		j.angular[i].clear()
	}
}

// UniversalJoint removes all translational DOF plus 1 rotational DOF,
// leaving free rotation about two perpendicular cross axes.
type UniversalJoint struct {
	A, B         *entity.Entity
	LocalAnchorA geom.Vector3
	LocalAxisA   geom.Vector3 // the DOF that stays locked (twist about it removed)
	LocalAnchorB geom.Vector3
	ERP          fixed.Fix64

	point   BallJoint
	angular angularRow
}

// NewUniversalJoint builds a UniversalJoint; LocalAxisA is the single
// rotational DOF that is removed (the two perpendicular axes stay free).
func NewUniversalJoint(a, b *entity.Entity, localAnchorA, localAxisA, localAnchorB geom.Vector3) *UniversalJoint {
	j := &UniversalJoint{A: a, B: b, LocalAnchorA: localAnchorA, LocalAxisA: localAxisA, LocalAnchorB: localAnchorB, ERP: defaultJointERP}
	j.point = *NewBallJoint(a, b, localAnchorA, localAnchorB)
	return j
}

func (j *UniversalJoint) PreStep(dt fixed.Fix64) {
	j.point.ERP = j.ERP
	j.point.PreStep(dt)

	axisWorld := j.A.World.ToWorldDir(j.LocalAxisA)
	j.angular = angularRow{A: j.A, B: j.B, Axis: axisWorld, AppliedImpulse: j.angular.AppliedImpulse}
	j.angular.preStep(j.angular.relativeSpin().Neg(), j.ERP, dt)
}

func (j *UniversalJoint) WarmStart() {
	j.point.WarmStart()
	j.angular.warmStart()
}

func (j *UniversalJoint) Solve(dt fixed.Fix64) {
	j.point.Solve(dt)
	j.angular.solve()
}

func (j *UniversalJoint) Clear() {
	j.point.Clear()
	j.angular.clear()
}
