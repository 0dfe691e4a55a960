package geom

import "github.com/qrigid/engine/fixed"

// RigidTransform is a position + unit-quaternion orientation, grounded on
// the teacher's math/lin.T (Loc, Rot fields; Integrate method).
type RigidTransform struct {
	Pos Vector3
	Rot Quaternion
}

// Identity returns the identity transform.
func Identity() RigidTransform { return RigidTransform{Rot: QIdentity} }

// ToWorld transforms a local-space point into world space.
func (t RigidTransform) ToWorld(local Vector3) Vector3 {
	return t.Rot.RotateVector(local).Add(t.Pos)
}

// ToLocal transforms a world-space point into local space.
func (t RigidTransform) ToLocal(world Vector3) Vector3 {
	return t.Rot.Conjugate().RotateVector(world.Sub(t.Pos))
}

// ToWorldDir rotates a local-space direction into world space (no
// translation).
func (t RigidTransform) ToWorldDir(local Vector3) Vector3 { return t.Rot.RotateVector(local) }

// ToLocalDir rotates a world-space direction into local space.
func (t RigidTransform) ToLocalDir(world Vector3) Vector3 { return t.Rot.Conjugate().RotateVector(world) }

// Integrate advances this transform by linear velocity v and angular
// velocity omega over dt, returning the new transform (position integrated
// by v*dt, orientation by the quaternion derivative, per §4.6 step 4b/a).
func (t RigidTransform) Integrate(v, omega Vector3, dt fixed.Fix64) RigidTransform {
	return RigidTransform{
		Pos: t.Pos.Add(v.Scale(dt)),
		Rot: t.Rot.Integrate(omega, dt),
	}
}

// Combine returns the transform equivalent to applying t, then a (a's
// frame expressed relative to t's).
func (t RigidTransform) Combine(a RigidTransform) RigidTransform {
	return RigidTransform{Pos: t.ToWorld(a.Pos), Rot: t.Rot.Mul(a.Rot)}
}
