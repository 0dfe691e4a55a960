package narrowphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

// TimeOfImpact computes a conservative time of impact in [0,1] for two
// shapes swept over dt by their respective linear/angular velocities
// (§4.6 step 4c, §4.2: "a bisection sweep for CCD"). The teacher has no
// continuous-collision path at all — this is built directly from the
// spec's own mention of a bisection sweep as the CCD alternative to a
// closed-form conservative-advancement distance solve, reusing this
// package's existing gjkIntersect boolean test as the per-sample oracle
// rather than adding a full GJK distance (closest-features) routine.
//
// If the shapes already overlap at t=0, TimeOfImpact reports (0, true).
// Otherwise it tests overlap at 64 evenly spaced points of the sweep and
// bisects inside the first interval whose end overlaps; if no sample
// overlaps it reports (1, false), so an overlap that begins and ends
// between two neighbouring samples is not found. Hit
// reports true can tell (via the returned toi < 1) how late the initial
// contact occurs within the tick; it returns a toi whose sampled transform
// is not yet intersecting (the last confirmed-clear sample), matching
// "translate by v*dt*min_toi" erring toward stopping short of contact
// rather than doi overshooting into it.
func TimeOfImpact(a shape.Shape, worldA geom.RigidTransform, velA, angVelA geom.Vector3, b shape.Shape, worldB geom.RigidTransform, velB, angVelB geom.Vector3, dt fixed.Fix64) (toi fixed.Fix64, hit bool) {
	sweptA := func(t fixed.Fix64) geom.RigidTransform {
		return worldA.Integrate(velA, angVelA, dt.SafeMul(t))
	}
	sweptB := func(t fixed.Fix64) geom.RigidTransform {
		return worldB.Integrate(velB, angVelB, dt.SafeMul(t))
	}
	overlapping := func(t fixed.Fix64) bool {
		_, ok := gjkIntersect(pair{a, sweptA(t)}, pair{b, sweptB(t)})
		return ok
	}

	if overlapping(0) {
		return 0, true
	}
	const sweepSamples = 64
	lo, hi := fixed.Zero, fixed.Zero
	found := false
	for i := int64(1); i <= sweepSamples; i++ {
		hi = fixed.FromInt(i).SafeDiv(fixed.FromInt(sweepSamples))
		if overlapping(hi) {
			found = true
			break
		}
		lo = hi
	}
	if !found {
		return fixed.One, false
	}

	for i := 0; i < 24; i++ {
		mid := lo.SafeAdd(hi).SafeMul(fixed.Half)
		if overlapping(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo, true
}
