package space

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrigid/engine/broadphase"
	"github.com/qrigid/engine/constraint"
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

func dynamicBox(hx, hy, hz, mass float64) *entity.Entity {
	e := entity.New(shape.NewBox(fixed.FromFloat64(hx), fixed.FromFloat64(hy), fixed.FromFloat64(hz), 0))
	e.SetMaterial(fixed.FromFloat64(mass), entity.DefaultMaterial)
	return e
}

func staticGroundAt(y float64) *entity.Entity {
	e := entity.New(shape.NewBox(fixed.FromFloat64(1000), fixed.FromFloat64(1), fixed.FromFloat64(1000), 0))
	e.SetMaterial(0, entity.DefaultMaterial)
	e.World = geom.RigidTransform{Pos: geom.V3(0, fixed.FromFloat64(y-1), 0), Rot: geom.QIdentity}
	return e
}

func newTestSpace() *Space {
	return NewSpace(DefaultConfig(), nil)
}

var testDt = fixed.FromFloat64(1.0 / 60)

func stepN(t *testing.T, s *Space, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Step(testDt)
	}
}

// TestBoxOnPlaneComesToRest exercises §8 scenario 1: a box dropped onto a
// static ground settles with its bottom face at the ground and near-zero
// linear velocity, never sinking through.
func TestBoxOnPlaneComesToRest(t *testing.T) {
	s := newTestSpace()
	ground := staticGroundAt(0)
	require.NoError(t, s.AddStatic(ground))

	box := dynamicBox(0.5, 0.5, 0.5, 1)
	box.World.Pos = geom.V3(0, fixed.FromFloat64(2), 0)
	require.NoError(t, s.AddEntity(box))

	stepN(t, s, 180) // 3 seconds at 60Hz

	require.InDelta(t, 0.5, box.World.Pos.Y.Float64(), 0.05, "box should rest with its bottom face at y=0")
	require.InDelta(t, 0, box.LinVel.Y.Float64(), 0.05, "resting box should have settled, near-zero vertical velocity")
}

// TestStackedSpheresStayStacked exercises §8 scenario 2: two spheres
// dropped in a vertical stack come to rest stacked, the top one never
// falling through the bottom one into the ground.
func TestStackedSpheresStayStacked(t *testing.T) {
	s := newTestSpace()
	ground := staticGroundAt(0)
	require.NoError(t, s.AddStatic(ground))

	bottom := dynamicSphere(0.5, 1)
	bottom.World.Pos = geom.V3(0, fixed.FromFloat64(0.6), 0)
	require.NoError(t, s.AddEntity(bottom))

	top := dynamicSphere(0.5, 1)
	top.World.Pos = geom.V3(0, fixed.FromFloat64(1.8), 0)
	require.NoError(t, s.AddEntity(top))

	stepN(t, s, 240)

	require.InDelta(t, 0.5, bottom.World.Pos.Y.Float64(), 0.05)
	require.InDelta(t, 1.5, top.World.Pos.Y.Float64(), 0.1, "top sphere should rest atop the bottom one, not tunnel through it")
}

// TestDistanceLimitPendulum exercises §8's pendulum scenario: a ball
// attached to a fixed anchor by a DistanceLimit never strays farther than
// the limit's Max, however long it swings under gravity.
func TestDistanceLimitPendulum(t *testing.T) {
	s := newTestSpace()

	anchor := entity.New(shape.NewBox(fixed.FromFloat64(0.1), fixed.FromFloat64(0.1), fixed.FromFloat64(0.1), 0))
	anchor.SetMaterial(0, entity.DefaultMaterial) // zero mass: acts as a fixed pivot
	anchor.World.Pos = geom.V3(0, fixed.FromFloat64(5), 0)
	require.NoError(t, s.AddEntity(anchor))

	bob := dynamicSphere(0.2, 1)
	bob.World.Pos = geom.V3(fixed.FromFloat64(2), fixed.FromFloat64(5), 0)
	require.NoError(t, s.AddEntity(bob))

	limit := constraint.NewDistanceLimit(anchor, bob, geom.Vector3{}, geom.Vector3{}, 0, fixed.FromFloat64(2))
	_, err := s.AddJoint(anchor, bob, limit)
	require.NoError(t, err)

	stepN(t, s, 300)

	dist := bob.World.Pos.Sub(anchor.World.Pos).Len().Float64()
	require.LessOrEqual(t, dist, 2.0+0.05, "pendulum bob must never stray past the distance limit's Max")
}

// TestCCDBulletStopsAtWall exercises §8 scenario 5 end-to-end through
// Space.Step: a fast CCD sphere must not tunnel through a thin static
// wall in a single tick.
func TestCCDBulletStopsAtWall(t *testing.T) {
	s := newTestSpace()
	s.Config.Gravity = Vector3YAML{} // isolate the CCD behavior from gravity drift

	wall := entity.New(shape.NewBox(fixed.FromFloat64(5), fixed.FromFloat64(5), fixed.FromFloat64(0.1), 0))
	wall.SetMaterial(0, entity.DefaultMaterial)
	wall.World.Pos = geom.V3(0, 0, fixed.FromFloat64(10))
	require.NoError(t, s.AddStatic(wall))

	bullet := dynamicSphere(0.05, 0.1)
	bullet.CCD = true
	bullet.LinVel = geom.V3(0, 0, fixed.FromFloat64(1000))
	require.NoError(t, s.AddEntity(bullet))

	s.Step(testDt)

	require.LessOrEqual(t, bullet.World.Pos.Z.Float64(), 10.0+0.5, "CCD bullet must not tunnel through the wall in one tick")
}

// TestAddEntityRejectsDuplicate and TestRemoveEntityRejectsUnknown cover
// §7's InvalidArgument/MissingEntity surfaced-error contract.
func TestAddEntityRejectsDuplicate(t *testing.T) {
	s := newTestSpace()
	e := dynamicSphere(0.5, 1)
	require.NoError(t, s.AddEntity(e))
	err := s.AddEntity(e)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRemoveEntityRejectsUnknown(t *testing.T) {
	s := newTestSpace()
	e := dynamicSphere(0.5, 1)
	err := s.RemoveEntity(e)
	require.ErrorIs(t, err, ErrMissingEntity)
}

func TestRemoveJointRejectsUnknown(t *testing.T) {
	s := newTestSpace()
	err := s.RemoveJoint(999)
	require.ErrorIs(t, err, ErrMissingEntity)
}

// TestJointRemovalTearsDownIslandConnection guards against a regression
// where RemoveJoint forgot to release the island-graph edge it created:
// after removing the only joint linking two bodies, each must be free to
// deactivate independently rather than being permanently tied together.
func TestJointRemovalTearsDownIslandConnection(t *testing.T) {
	s := newTestSpace()
	s.Config.Gravity = Vector3YAML{}

	a := dynamicSphere(0.5, 1)
	b := dynamicSphere(0.5, 1)
	b.World.Pos = geom.V3(fixed.FromFloat64(3), 0, 0)
	require.NoError(t, s.AddEntity(a))
	require.NoError(t, s.AddEntity(b))

	id, err := s.AddJoint(a, b, constraint.NewDistanceJoint(a, b, geom.Vector3{}, geom.Vector3{}, fixed.FromFloat64(3)))
	require.NoError(t, err)
	require.NoError(t, s.RemoveJoint(id))

	// No panic, no dangling connection: re-adding a joint and removing it
	// again must still work cleanly.
	id2, err := s.AddJoint(a, b, constraint.NewDistanceJoint(a, b, geom.Vector3{}, geom.Vector3{}, fixed.FromFloat64(3)))
	require.NoError(t, err)
	require.NoError(t, s.RemoveJoint(id2))

	stepN(t, s, 5)
}

// TestVolumeQueryFindsRegisteredEntities exercises §6's volume_query.
func TestVolumeQueryFindsRegisteredEntities(t *testing.T) {
	s := newTestSpace()
	a := dynamicSphere(0.5, 1)
	b := dynamicSphere(0.5, 1)
	b.World.Pos = geom.V3(fixed.FromFloat64(100), 0, 0)
	require.NoError(t, s.AddEntity(a))
	require.NoError(t, s.AddEntity(b))

	box := geom.NewBoundingBox(geom.V3(fixed.FromFloat64(-1), fixed.FromFloat64(-1), fixed.FromFloat64(-1)), geom.V3(fixed.FromFloat64(1), fixed.FromFloat64(1), fixed.FromFloat64(1)))
	entries := s.VolumeQuery(box)

	require.Len(t, entries, 1)
	require.Equal(t, a.ID(), entries[0].Entity)
}

// TestRayCastHitsClosestEntity exercises §6's ray_cast, including that a
// filter can exclude an otherwise-closer candidate.
func TestRayCastHitsClosestEntity(t *testing.T) {
	s := newTestSpace()
	near := dynamicSphere(0.5, 1)
	near.World.Pos = geom.V3(0, 0, fixed.FromFloat64(5))
	far := dynamicSphere(0.5, 1)
	far.World.Pos = geom.V3(0, 0, fixed.FromFloat64(10))
	require.NoError(t, s.AddEntity(near))
	require.NoError(t, s.AddEntity(far))

	hit, ok := s.RayCast(geom.Vector3{}, geom.V3(0, 0, fixed.One), fixed.FromFloat64(20), nil)
	require.True(t, ok)
	require.Equal(t, near.ID(), hit.Entity)

	hit, ok = s.RayCast(geom.Vector3{}, geom.V3(0, 0, fixed.One), fixed.FromFloat64(20), func(id entity.ID) bool {
		return id != near.ID()
	})
	require.True(t, ok)
	require.Equal(t, far.ID(), hit.Entity)
}

// TestConvexCastReportsSweepHit exercises §6's convex_cast.
func TestConvexCastReportsSweepHit(t *testing.T) {
	s := newTestSpace()
	wall := entity.New(shape.NewBox(fixed.FromFloat64(5), fixed.FromFloat64(5), fixed.FromFloat64(0.1), 0))
	wall.SetMaterial(0, entity.DefaultMaterial)
	wall.World.Pos = geom.V3(0, 0, fixed.FromFloat64(10))
	require.NoError(t, s.AddStatic(wall))

	caster := shape.NewSphere(fixed.FromFloat64(0.25), 0)
	start := geom.RigidTransform{Rot: geom.QIdentity}
	sweep := geom.V3(0, 0, fixed.FromFloat64(20))

	hit, ok := s.ConvexCast(caster, start, sweep, nil)
	require.True(t, ok)
	require.Equal(t, wall.ID(), hit.Entity)
	require.Less(t, hit.T.Float64(), 1.0)
}

func TestVolumeQueryExcludesRemovedEntity(t *testing.T) {
	s := newTestSpace()
	a := dynamicSphere(0.5, 1)
	require.NoError(t, s.AddEntity(a))
	require.NoError(t, s.RemoveEntity(a))

	box := geom.NewBoundingBox(geom.V3(fixed.FromFloat64(-1000), fixed.FromFloat64(-1000), fixed.FromFloat64(-1000)), geom.V3(fixed.FromFloat64(1000), fixed.FromFloat64(1000), fixed.FromFloat64(1000)))
	entries := s.VolumeQuery(box)
	require.Empty(t, entries, "a removed entity must not surface in a subsequent volume_query")
}

// TestFrustumQueryExcludesBehindCamera exercises §6's frustum variant of
// volume_query: an entity behind a single "near plane" half-space is
// excluded even though it would pass an unbounded box query.
func TestFrustumQueryExcludesBehindCamera(t *testing.T) {
	s := newTestSpace()
	ahead := dynamicSphere(0.5, 1)
	ahead.World.Pos = geom.V3(0, 0, fixed.FromFloat64(5))
	behind := dynamicSphere(0.5, 1)
	behind.World.Pos = geom.V3(0, 0, fixed.FromFloat64(-5))
	require.NoError(t, s.AddEntity(ahead))
	require.NoError(t, s.AddEntity(behind))

	// Inward-facing near plane at z=0: Normal.Dot(p)+D >= 0 keeps z >= 0.
	nearPlane := broadphase.FrustumPlane{Normal: geom.V3(0, 0, fixed.One), D: fixed.Zero}
	entries := s.FrustumQuery([]broadphase.FrustumPlane{nearPlane})

	require.Len(t, entries, 1)
	require.Equal(t, ahead.ID(), entries[0].Entity)
}
