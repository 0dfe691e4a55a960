package constraint

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// defaultERP, defaultLinearSlop and defaultRestitutionVelocityThreshold
// mirror the teacher's solver.go defaults (erp=0.2, linearSlop=0.005,
// restitution applied only above a small closing-speed threshold to avoid
// jitter on resting contacts).
var (
	defaultERP                          = fixed.FromFloat64(0.2)
	defaultLinearSlop                   = fixed.FromFloat64(0.005)
	defaultRestitutionVelocityThreshold = fixed.One
)

// PenetrationConstraint is the normal-direction contact row: it pushes two
// bodies apart along NormalWorldB, with a Baumgarte position-bias term plus
// a restitution term, clamped to a non-negative impulse (a contact can only
// push, never pull) — directly grounded on solver.go's
// setupContactConstraint (jacDiagABInv effective mass, rhs bias,
// lowerLimit=0/upperLimit=huge).
type PenetrationConstraint struct {
	A, B             *entity.Entity
	AnchorA, AnchorB geom.Vector3 // lever arms from each body's center of mass, world-space
	Normal           geom.Vector3 // points from A toward B
	Penetration      fixed.Fix64  // negative when overlapping
	Restitution      fixed.Fix64
	ERP              fixed.Fix64
	LinearSlop       fixed.Fix64
	// MaxCorrectiveVelocity caps the position-bias term (spec §6's
	// max_corrective_velocity); zero means unbounded.
	MaxCorrectiveVelocity fixed.Fix64
	// BouncinessVelocityThreshold is the closing-speed magnitude above
	// which restitution applies (spec §6's bounciness_velocity_threshold);
	// zero falls back to defaultRestitutionVelocityThreshold.
	BouncinessVelocityThreshold fixed.Fix64

	effMass        fixed.Fix64
	bias           fixed.Fix64
	AppliedImpulse fixed.Fix64
}

// NewPenetrationConstraint builds a PenetrationConstraint with the
// teacher's default ERP/slop, combining the two bodies' materials for
// restitution.
func NewPenetrationConstraint(a, b *entity.Entity, anchorA, anchorB, normal geom.Vector3, penetration fixed.Fix64) *PenetrationConstraint {
	return &PenetrationConstraint{
		A: a, B: b,
		AnchorA: anchorA, AnchorB: anchorB,
		Normal:      normal,
		Penetration: penetration,
		Restitution: entity.CombineBounciness(a.Material, b.Material),
		ERP:         defaultERP,
		LinearSlop:  defaultLinearSlop,
	}
}

func (c *PenetrationConstraint) PreStep(dt fixed.Fix64) {
	c.effMass = effectiveMass(c.A, c.B, c.AnchorA, c.AnchorB, c.Normal)

	closingSpeed := relativeVelocity(c.A, c.B, c.AnchorA, c.AnchorB, c.Normal)

	threshold := c.BouncinessVelocityThreshold
	if threshold.AeqZero() {
		threshold = defaultRestitutionVelocityThreshold
	}
	restitutionTerm := fixed.Zero
	if closingSpeed < -threshold {
		restitutionTerm = closingSpeed.Neg().SafeMul(c.Restitution)
	}

	penetrationDepth := c.Penetration.SafeAdd(c.LinearSlop)
	biasTerm := fixed.Zero
	if penetrationDepth < 0 {
		// Position correction only kicks in once the slop is exceeded, and
		// only pushes apart (never pulls together), matching setupContactConstraint.
		biasTerm = penetrationDepth.Neg().SafeMul(c.ERP).SafeDiv(dt)
		if c.MaxCorrectiveVelocity > 0 {
			biasTerm = fixed.Min(biasTerm, c.MaxCorrectiveVelocity)
		}
	}
	c.bias = fixed.Max(restitutionTerm, biasTerm)
}

func (c *PenetrationConstraint) WarmStart() {
	impulse := c.Normal.Scale(c.AppliedImpulse)
	applyImpulse(c.A, impulse.Neg(), c.AnchorA)
	applyImpulse(c.B, impulse, c.AnchorB)
}

func (c *PenetrationConstraint) Solve(dt fixed.Fix64) {
	closingSpeed := relativeVelocity(c.A, c.B, c.AnchorA, c.AnchorB, c.Normal)
	delta := c.bias.SafeSub(closingSpeed).SafeMul(c.effMass)

	applied, newAccum := clampedAccumulate(c.AppliedImpulse, delta, 0, fixed.MaxValue)
	c.AppliedImpulse = newAccum

	impulse := c.Normal.Scale(applied)
	applyImpulse(c.A, impulse.Neg(), c.AnchorA)
	applyImpulse(c.B, impulse, c.AnchorB)
}

func (c *PenetrationConstraint) Clear() { c.AppliedImpulse = 0 }

// SlidingFrictionConstraint is a tangent-direction friction row bounded by
// the friction cone derived from its companion PenetrationConstraint's last
// applied impulse — grounds the friction-impulse-bound invariant. Grounded
// on solver.go's setupFrictionConstraint.
type SlidingFrictionConstraint struct {
	A, B             *entity.Entity
	AnchorA, AnchorB geom.Vector3
	Tangent          geom.Vector3
	Normal           *PenetrationConstraint // supplies the friction cone bound
	Friction         fixed.Fix64

	effMass        fixed.Fix64
	AppliedImpulse fixed.Fix64
}

// NewSlidingFrictionConstraint builds a friction row coupled to normal's
// accumulated impulse.
func NewSlidingFrictionConstraint(a, b *entity.Entity, anchorA, anchorB, tangent geom.Vector3, normal *PenetrationConstraint) *SlidingFrictionConstraint {
	return &SlidingFrictionConstraint{
		A: a, B: b,
		AnchorA: anchorA, AnchorB: anchorB,
		Tangent:  tangent,
		Normal:   normal,
		Friction: entity.CombineFriction(a.Material, b.Material, false),
	}
}

func (c *SlidingFrictionConstraint) PreStep(dt fixed.Fix64) {
	c.effMass = effectiveMass(c.A, c.B, c.AnchorA, c.AnchorB, c.Tangent)
}

func (c *SlidingFrictionConstraint) WarmStart() {
	impulse := c.Tangent.Scale(c.AppliedImpulse)
	applyImpulse(c.A, impulse.Neg(), c.AnchorA)
	applyImpulse(c.B, impulse, c.AnchorB)
}

func (c *SlidingFrictionConstraint) Solve(dt fixed.Fix64) {
	closingSpeed := relativeVelocity(c.A, c.B, c.AnchorA, c.AnchorB, c.Tangent)
	delta := closingSpeed.Neg().SafeMul(c.effMass)

	bound := c.Normal.AppliedImpulse.SafeMul(c.Friction)
	applied, newAccum := clampedAccumulate(c.AppliedImpulse, delta, bound.Neg(), bound)
	c.AppliedImpulse = newAccum

	impulse := c.Tangent.Scale(applied)
	applyImpulse(c.A, impulse.Neg(), c.AnchorA)
	applyImpulse(c.B, impulse, c.AnchorB)
}

func (c *SlidingFrictionConstraint) Clear() { c.AppliedImpulse = 0 }

// TwistFrictionConstraint damps relative spin about the contact normal
// (rolling/spin friction for round shapes), bounded by the same friction
// cone as the sliding rows. Grounded on solver.go's
// setupFrictionConstraint's second tangent/torsional row.
type TwistFrictionConstraint struct {
	A, B     *entity.Entity
	Axis     geom.Vector3 // contact normal, used as a pure-angular axis
	Normal   *PenetrationConstraint
	Friction fixed.Fix64

	effMass        fixed.Fix64
	AppliedImpulse fixed.Fix64
}

// NewTwistFrictionConstraint builds a spin-friction row about axis.
func NewTwistFrictionConstraint(a, b *entity.Entity, axis geom.Vector3, normal *PenetrationConstraint) *TwistFrictionConstraint {
	return &TwistFrictionConstraint{
		A: a, B: b,
		Axis:     axis,
		Normal:   normal,
		Friction: entity.CombineFriction(a.Material, b.Material, false),
	}
}

func (c *TwistFrictionConstraint) angularEffMass() fixed.Fix64 {
	k := angularTerm(c.A.InvInertiaWorld(), c.Axis, c.Axis).SafeAdd(angularTerm(c.B.InvInertiaWorld(), c.Axis, c.Axis))
	if k.AeqZero() {
		return 0
	}
	return fixed.One.SafeDiv(k)
}

func (c *TwistFrictionConstraint) PreStep(dt fixed.Fix64) {
	c.effMass = c.angularEffMass()
}

func (c *TwistFrictionConstraint) relativeSpin() fixed.Fix64 {
	return c.B.AngVel.Sub(c.A.AngVel).Dot(c.Axis)
}

func (c *TwistFrictionConstraint) applyAngularImpulse(magnitude fixed.Fix64) {
	angImpulse := c.Axis.Scale(magnitude)
	if c.A.Movable() {
		c.A.AngVel = c.A.AngVel.Sub(angImpulse.MulM3(c.A.InvInertiaWorld()))
	}
	if c.B.Movable() {
		c.B.AngVel = c.B.AngVel.Add(angImpulse.MulM3(c.B.InvInertiaWorld()))
	}
}

func (c *TwistFrictionConstraint) WarmStart() { c.applyAngularImpulse(c.AppliedImpulse) }

func (c *TwistFrictionConstraint) Solve(dt fixed.Fix64) {
	spin := c.relativeSpin()
	delta := spin.Neg().SafeMul(c.effMass)

	bound := c.Normal.AppliedImpulse.SafeMul(c.Friction)
	applied, newAccum := clampedAccumulate(c.AppliedImpulse, delta, bound.Neg(), bound)
	c.AppliedImpulse = newAccum

	c.applyAngularImpulse(applied)
}

func (c *TwistFrictionConstraint) Clear() { c.AppliedImpulse = 0 }
