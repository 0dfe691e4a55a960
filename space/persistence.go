package space

import (
	"github.com/qrigid/engine/constraint"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/narrowphase"
)

// persistentPenetration wraps a per-tick PenetrationConstraint so its
// converged accumulated impulse is written back onto the manifold Contact
// it came from, after every solver iteration — the manifold's Contact is
// the thing that actually persists across ticks (§4.4's AddOrMerge keeps
// it keyed by surface feature); the constraint row itself is rebuilt fresh
// every tick from that carried-forward value.
type persistentPenetration struct {
	*constraint.PenetrationConstraint
	contact *narrowphase.Contact
}

func (p *persistentPenetration) Solve(dt fixed.Fix64) {
	p.PenetrationConstraint.Solve(dt)
	p.contact.NormalImpulse = p.PenetrationConstraint.AppliedImpulse
}

// persistentSliding is persistentPenetration's counterpart for the
// manifold's central sliding-friction row, writing back into the first
// contact's TangentImpulse[0] slot.
type persistentSliding struct {
	*constraint.SlidingFrictionConstraint
	contact *narrowphase.Contact
}

func (p *persistentSliding) Solve(dt fixed.Fix64) {
	p.SlidingFrictionConstraint.Solve(dt)
	p.contact.TangentImpulse[0] = p.SlidingFrictionConstraint.AppliedImpulse
}

// persistentTwist is persistentPenetration's counterpart for the
// manifold's central twist-friction row. It reuses the first contact's
// TangentImpulse[1] slot as twist storage, since Contact has no dedicated
// twist-impulse field and a manifold only ever carries one twist row.
type persistentTwist struct {
	*constraint.TwistFrictionConstraint
	contact *narrowphase.Contact
}

func (p *persistentTwist) Solve(dt fixed.Fix64) {
	p.TwistFrictionConstraint.Solve(dt)
	p.contact.TangentImpulse[1] = p.TwistFrictionConstraint.AppliedImpulse
}
