package entity

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

// ErrInvalidArgument is the sentinel for spec §7's InvalidArgument kind.
// The space package re-exports it and wraps it for nil or duplicate
// registrations; no constructor in entity or constraint returns it.
// Callers wrap it with fmt.Errorf("%w: ...") and compare with errors.Is.
var ErrInvalidArgument = errors.New("entity: invalid argument")

// ID is a monotonically increasing body identifier — the "stable identity"
// named in spec §6 as instance_id. Grounded on the teacher's bodyUUID
// counter in physics/body.go.
type ID uint64

var nextID uint64
var nextIDMu sync.Mutex // concurrency safety, mirrors the teacher's bodyUUIDMutex.

func allocID() ID {
	nextIDMu.Lock()
	defer nextIDMu.Unlock()
	nextID++
	return ID(nextID)
}

// ActivityInfo tracks the per-entity state the deactivation manager needs
// (§3, §4.7): how long this entity's kinetic energy has been below the
// threshold, whether it currently counts as a deactivation candidate, and
// which island it belongs to (an opaque key owned by the island package).
type ActivityInfo struct {
	LowVelocityTime fixed.Fix64
	Candidate       bool
	Active          bool
	IslandKey       int64 // -1 when unowned.
}

// Entity is a single rigid body (§3). Entities are created by the host,
// owned by a Space, and destroyed by explicit removal.
type Entity struct {
	id         ID
	Kinematic  bool
	Collidable bool
	Shape      shape.Shape
	Material   *Material

	World geom.RigidTransform
	Guess geom.RigidTransform // predicted transform, used by broad-phase margin (§4.6 step 4c groundwork)

	LinVel, AngVel     geom.Vector3
	linForce, angForce geom.Vector3

	invMass         fixed.Fix64
	invInertiaLocal geom.Vector3
	invInertiaWorld geom.Matrix3x3

	LinDamping, AngDamping fixed.Fix64
	GravityOverride        *geom.Vector3

	// UltraDampTime tracks how long this entity's kinetic energy has sat
	// below the integrator's ultra-damping threshold, separately from the
	// island deactivation candidacy in Activity (§4.6 step 5's "ultra-
	// damping" is an integration-time quench, distinct from the island
	// manager's activation bit).
	UltraDampTime fixed.Fix64

	CCD bool

	Activity ActivityInfo

	// ConstraintRefs is the back-reference set of constraint ids touching
	// this entity, used by the island graph to wake/merge on mutation.
	ConstraintRefs map[uint64]struct{}

	spin int32 // optional spin-lock for out-of-phase collision-callback writes (§5, §9); discouraged.
}

// New creates an entity with the given shape, at the identity transform,
// with zero mass (static) until SetMaterial is called.
func New(s shape.Shape) *Entity {
	e := &Entity{
		id:             allocID(),
		Collidable:     true,
		Shape:          s,
		Material:       DefaultMaterial,
		World:          geom.Identity(),
		Guess:          geom.Identity(),
		ConstraintRefs: map[uint64]struct{}{},
	}
	e.Activity.IslandKey = -1
	return e
}

// ID returns the entity's stable identity.
func (e *Entity) ID() ID { return e.id }

// Movable reports whether the entity has mass and is not kinematic.
func (e *Entity) Movable() bool { return !e.Kinematic && e.invMass != 0 }

// InvMass returns the entity's inverse mass (0 for static/kinematic bodies).
func (e *Entity) InvMass() fixed.Fix64 { return e.invMass }

// InvInertiaWorld returns the current world-space inverse inertia tensor.
func (e *Entity) InvInertiaWorld() geom.Matrix3x3 { return e.invInertiaWorld }

// SetMaterial assigns mass and a material, deriving inverse mass and the
// local inverse inertia tensor from the entity's shape description
// (grounded on body.go's setMaterial).
func (e *Entity) SetMaterial(mass fixed.Fix64, mat *Material) {
	e.Material = mat
	if e.Kinematic || mass.AeqZero() {
		e.invMass = 0
		e.invInertiaLocal = geom.Vector3{}
		return
	}
	e.invMass = fixed.One.SafeDiv(mass)
	desc := e.Shape.Describe()
	inertia := desc.InertiaDiag.Scale(mass)
	inv := func(v fixed.Fix64) fixed.Fix64 {
		if v.AeqZero() {
			return 0
		}
		return fixed.One.SafeDiv(v)
	}
	e.invInertiaLocal = geom.V3(inv(inertia.X), inv(inertia.Y), inv(inertia.Z))
	e.updateInertiaTensor()
}

// pairID generates a unique, call-order-independent id for the pair (e,a),
// used as a manifold/constraint key — grounded on body.go's pairID.
func (e *Entity) PairID(a *Entity) uint64 {
	id0, id1 := uint64(e.id), uint64(a.id)
	if id0 > id1 {
		id0, id1 = id1, id0
	}
	return id0<<32 | id1
}

// updateInertiaTensor recomputes the world-space inverse inertia tensor
// R * diag(invInertiaLocal) * R^T from the current orientation.
func (e *Entity) updateInertiaTensor() {
	r := geom.FromQuaternion(e.World.Rot)
	e.invInertiaWorld = r.ScaleCols(e.invInertiaLocal).Mul(r.Transpose())
}

// AddForce accumulates a force (and, via the lever arm from the body's
// center of mass, torque) for the next integration step.
func (e *Entity) AddForce(atLocalPoint, force geom.Vector3) {
	if !e.Movable() {
		return
	}
	e.linForce = e.linForce.Add(force)
	if !atLocalPoint.AeqZero() {
		e.angForce = e.angForce.Add(atLocalPoint.Cross(force))
	}
}

// ApplyGravity adds the per-tick gravity force; static/kinematic bodies
// are skipped.
func (e *Entity) ApplyGravity(gravity geom.Vector3) {
	if !e.Movable() {
		return
	}
	g := gravity
	if e.GravityOverride != nil {
		g = *e.GravityOverride
	}
	mass := fixed.One.SafeDiv(e.invMass)
	e.linForce = e.linForce.Add(g.Scale(mass))
}

// IntegrateVelocities updates linear/angular velocity from accumulated
// forces over dt (§4.6 prestep groundwork), clamping angular velocity so
// later collision math does not see implausibly fast spin — grounded on
// body.go's integrateVelocities.
func (e *Entity) IntegrateVelocities(dt fixed.Fix64) {
	if !e.Movable() {
		return
	}
	e.LinVel = e.LinVel.Add(e.linForce.Scale(e.invMass.SafeMul(dt)))
	torque := e.angForce.MulM3(e.invInertiaWorld)
	e.AngVel = e.AngVel.Add(torque.Scale(dt))

	if avel := e.AngVel.Len(); !avel.AeqZero() && avel.SafeMul(dt) > fixed.HalfPi {
		e.AngVel = e.AngVel.Scale(fixed.HalfPi.SafeDiv(dt).SafeDiv(avel))
	}
}

// ApplyDamping scales velocities by (1-damping)^dt (§4.6 step 5), grounded
// on body.go's applyDamping.
func (e *Entity) ApplyDamping(dt fixed.Fix64) {
	ld, _ := (fixed.One.SafeSub(e.LinDamping)).Pow(dt)
	ad, _ := (fixed.One.SafeSub(e.AngDamping)).Pow(dt)
	e.LinVel = e.LinVel.Scale(ld)
	e.AngVel = e.AngVel.Scale(ad)
}

// UltraDamp applies an extra damping multiplier on top of the normal
// per-tick damping, used to quietly quench residual motion once a body has
// been below the deactivation velocity threshold for a while (§4.6 step 5).
func (e *Entity) UltraDamp(factor fixed.Fix64) {
	e.LinVel = e.LinVel.Scale(factor)
	e.AngVel = e.AngVel.Scale(factor)
}

// ClearForces resets accumulated forces/torques to zero, called once per
// tick after integration.
func (e *Entity) ClearForces() {
	e.linForce = geom.Vector3{}
	e.angForce = geom.Vector3{}
}

// KineticEnergy returns 2x the body's kinetic energy (linear + angular);
// the factor of 2 is dropped consistently across comparisons, so it never
// needs to be divided back out (only used against a threshold).
func (e *Entity) KineticEnergy() fixed.Fix64 {
	lin := e.LinVel.LenSq().SafeMul(fixed.One.SafeDiv(maxOne(e.invMass)))
	w := e.World.ToLocalDir(e.AngVel)
	ang := fixed.Zero
	for _, c := range [3][2]fixed.Fix64{{w.X, e.invInertiaLocal.X}, {w.Y, e.invInertiaLocal.Y}, {w.Z, e.invInertiaLocal.Z}} {
		if c[1] != 0 {
			ang = ang.SafeAdd(c[0].SafeMul(c[0]).SafeDiv(c[1]))
		}
	}
	return lin.SafeAdd(ang)
}

func maxOne(invMass fixed.Fix64) fixed.Fix64 {
	if invMass.AeqZero() {
		return fixed.MaxValue
	}
	return invMass
}

// VelocityAtLocalPoint returns the linear velocity, due to the body's linear
// and angular velocity, of the point at the given world-space offset from
// the center of mass.
func (e *Entity) VelocityAtLocalPoint(localPoint geom.Vector3) geom.Vector3 {
	return e.AngVel.Cross(localPoint).Add(e.LinVel)
}

// UpdatePredictedTransform advances Guess by the current velocities over
// dt, used by the broad phase to size the swept margin for moving bodies
// (§4.6 step 4c groundwork).
func (e *Entity) UpdatePredictedTransform(dt fixed.Fix64) {
	e.Guess = e.World.Integrate(e.LinVel, e.AngVel, dt)
}

// Integrate advances World by dt using the current velocities, then
// recomputes the world inertia tensor (§4.6 steps 4a/4b/4d).
func (e *Entity) Integrate(dt fixed.Fix64) {
	if !e.Movable() {
		return
	}
	e.World = e.World.Integrate(e.LinVel, e.AngVel, dt)
	e.updateInertiaTensor()
}

// IntegrateScaled advances World's orientation by the full angular step but
// its position by only toiScale of the linear step, then recomputes the
// world inertia tensor. Used for CCD bodies (§4.6 step 4c): the body still
// rotates a full dt each tick, but translates only up to its time of
// impact, so it comes to rest against whatever it swept into instead of
// tunnelling through it.
func (e *Entity) IntegrateScaled(dt, toiScale fixed.Fix64) {
	if !e.Movable() {
		return
	}
	e.World = geom.RigidTransform{
		Pos: e.World.Pos.Add(e.LinVel.Scale(dt.SafeMul(toiScale))),
		Rot: e.World.Rot.Integrate(e.AngVel, dt),
	}
	e.updateInertiaTensor()
}

// WorldAabb returns the entity's current world-space bounding box.
func (e *Entity) WorldAabb(margin fixed.Fix64) geom.BoundingBox {
	return e.Shape.LocalBoundingBox(e.World).Expanded(margin)
}

// Wake marks the entity (and by extension its island) active; called on
// any impulse application, explicit mutation, or graph edit that touches
// this member (§4.7).
func (e *Entity) Wake() {
	e.Activity.Active = true
	e.Activity.Candidate = false
	e.Activity.LowVelocityTime = 0
}

// Lock acquires the entity's optional spin-lock, used by out-of-phase
// collision callbacks that need exclusive write access to body state
// (§5, §9 design note: discouraged inside the core).
func (e *Entity) Lock() {
	for !atomic.CompareAndSwapInt32(&e.spin, 0, 1) {
	}
}

// Unlock releases the spin-lock.
func (e *Entity) Unlock() { atomic.StoreInt32(&e.spin, 0) }
