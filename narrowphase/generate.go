package narrowphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

// tangentBasis builds two unit vectors spanning the plane perpendicular to
// normal, used for the sliding-friction constraint's jacobian (§4.5).
func tangentBasis(normal geom.Vector3) [2]geom.Vector3 {
	var ref geom.Vector3
	if normal.X.Abs() < fixed.FromFloat64(0.9) {
		ref = geom.V3(fixed.One, 0, 0)
	} else {
		ref = geom.V3(0, fixed.One, 0)
	}
	t0 := normal.Cross(ref).Unit()
	t1 := normal.Cross(t0).Unit()
	return [2]geom.Vector3{t0, t1}
}

// convexConvexContact runs GJK/EPA between two convex shapes placed by wtA/
// wtB and, on overlap, returns the single contact (the deepest witness
// point along the EPA normal) it would fold into a manifold, without
// merging it — the decomposition path (decompose.go) needs to inspect and
// possibly demote a candidate (§4.4 step 4) before it ever reaches
// AddOrMerge.
func convexConvexContact(shapeA shape.Shape, wtA geom.RigidTransform, shapeB shape.Shape, wtB geom.RigidTransform) (Contact, bool) {
	pa := pair{Shape: shapeA, World: wtA}
	pb := pair{Shape: shapeB, World: wtB}

	s, overlapping := gjkIntersect(pa, pb)
	if !overlapping {
		return Contact{}, false
	}
	normal, depth, ok := epaPenetration(pa, pb, s)
	if !ok || depth.AeqZero() {
		return Contact{}, false
	}

	worldA := pa.support(normal)
	worldB := pb.support(normal.Neg())
	mid := worldA.Add(worldB).Scale(fixed.Half)

	return Contact{
		LocalA:       wtA.ToLocal(mid),
		LocalB:       wtB.ToLocal(mid),
		NormalWorldB: normal.Neg(),
		Tangent:      tangentBasis(normal.Neg()),
		Distance:     depth.Neg(),
		worldA:       mid,
		worldB:       mid,
	}, true
}

// GenerateConvexConvex runs convexConvexContact and folds the result
// straight into manifold. Box/box and other multi-point face contacts
// reduce to this one-point-per-tick path plus the manifold's own
// AddOrMerge/reduceToFour accumulation building up a fuller manifold over
// several ticks — a scope reduction from clipping.go's single-tick
// face-clip (documented in DESIGN.md) that still satisfies the minimum-
// separation-distance invariant, since every accepted contact comes
// straight out of EPA's converged depth.
func GenerateConvexConvex(manifold *ContactManifold, shapeA shape.Shape, wtA geom.RigidTransform, shapeB shape.Shape, wtB geom.RigidTransform) bool {
	c, ok := convexConvexContact(shapeA, wtA, shapeB, wtB)
	if !ok {
		return false
	}
	manifold.AddOrMerge(c)
	return true
}

// GenerateSphereSphere is the exact fast path for two spheres, grounded on
// support.go's collider_TYPE_SPHERE branch generalized to an analytic
// closed form (no GJK/EPA iteration needed for spheres).
func GenerateSphereSphere(manifold *ContactManifold, sa *shape.Sphere, wtA geom.RigidTransform, sb *shape.Sphere, wtB geom.RigidTransform) bool {
	centerA, centerB := wtA.Pos, wtB.Pos
	delta := centerA.Sub(centerB)
	dist := delta.Len()
	radiusSum := sa.Radius.SafeAdd(sb.Radius)
	if dist >= radiusSum {
		return false
	}
	var normal geom.Vector3
	if dist.AeqZero() {
		normal = geom.V3(0, fixed.One, 0)
	} else {
		normal = delta.Scale(fixed.One.SafeDiv(dist))
	}
	worldA := centerA.Sub(normal.Scale(sa.Radius))
	worldB := centerB.Add(normal.Scale(sb.Radius))
	c := Contact{
		LocalA:       wtA.ToLocal(worldA),
		LocalB:       wtB.ToLocal(worldB),
		NormalWorldB: normal,
		Tangent:      tangentBasis(normal),
		Distance:     dist.SafeSub(radiusSum),
		worldA:       worldA,
		worldB:       worldB,
	}
	manifold.AddOrMerge(c)
	return true
}

// Generate dispatches to the fastest applicable path for the pair's shape
// kinds, falling back to the general convex-convex GJK/EPA path (§4.4's
// pair-type dispatch table). guessA/guessB are the two bodies' predicted
// transforms for this tick (entity.Entity.Guess); they are only consulted
// by the mesh-containment pass (§4.4 step 5) when one side is a solid
// mobile mesh, and may be passed as the zero RigidTransform (or equal to
// wtA/wtB) to skip that pass entirely.
func Generate(manifold *ContactManifold, shapeA shape.Shape, wtA, guessA geom.RigidTransform, shapeB shape.Shape, wtB, guessB geom.RigidTransform) bool {
	if sa, ok := shapeA.(*shape.Sphere); ok {
		if sb, ok := shapeB.(*shape.Sphere); ok {
			return GenerateSphereSphere(manifold, sa, wtA, sb, wtB)
		}
	}
	if !shapeA.Convex() || !shapeB.Convex() {
		return generateWithDecomposition(manifold, shapeA, wtA, guessA, shapeB, wtB, guessB)
	}
	return GenerateConvexConvex(manifold, shapeA, wtA, shapeB, wtB)
}
