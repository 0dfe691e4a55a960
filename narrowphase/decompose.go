package narrowphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

// meshBoundaryThreshold is the anti-alignment cutoff for §4.4 step 4's
// "improved boundary" pass: a candidate normal whose dot product against a
// neighbouring triangle's normal falls below this is considered to be the
// classic "internal edge" false bump (a convex sliding across a shared
// edge between two coplanar-ish triangles briefly reads a face normal that
// points the wrong way relative to the surface it is actually sliding
// along) and is demoted — dropped rather than folded into the manifold.
var meshBoundaryThreshold = fixed.FromFloat64(-0.5)

// meshContainmentDepth is the fixed penetration depth assigned to a
// mesh-containment sentinel contact (§4.4 step 5). A single ray hit
// against a solid mesh's shell doesn't establish a true penetration depth
// the way GJK/EPA does for an ordinary overlap, so this module uses a
// fixed "deep enough to matter" value instead of inventing one from the
// ray's hit fraction.
var meshContainmentDepth = fixed.FromFloat64(-1.0)

// generateWithDecomposition handles every pair where at least one side is
// non-convex (mesh or multi-child compound), per §4.4's pair-type dispatch
// table: compounds decompose into their convex children, meshes decompose
// into their triangles. Each convex/convex sub-pair is then tested the
// same way Generate's convex-convex path would, AABB-prefiltered first so
// an O(triangles) scan still skips most of a large mesh; a mesh-side
// sub-pair additionally runs the boundary-pass demotion check (step 4)
// before it is allowed into the manifold. Every overlapping sub-pair that
// survives adds one contact via AddOrMerge, and reduceToFour keeps the
// manifold at no more than 4 points. If the whole pass finds no
// contact at all, the mesh-containment check (step 5) runs as a fallback.
func generateWithDecomposition(manifold *ContactManifold, shapeA shape.Shape, wtA, guessA geom.RigidTransform, shapeB shape.Shape, wtB, guessB geom.RigidTransform) bool {
	aShapes, aXforms, meshA, triA := decompose(shapeA, wtA)
	bShapes, bXforms, meshB, triB := decompose(shapeB, wtB)

	hit := false
	for i, sa := range aShapes {
		boxA := sa.LocalBoundingBox(aXforms[i])
		for j, sb := range bShapes {
			boxB := sb.LocalBoundingBox(bXforms[j])
			if !geom.Intersects(boxA, boxB) {
				continue
			}
			c, ok := convexConvexContact(sa, aXforms[i], sb, bXforms[j])
			if !ok {
				continue
			}
			if meshA != nil && demotedByBoundaryPass(meshA, meshA.Tris[triA[i]], c.NormalWorldB.Neg()) {
				continue
			}
			if meshB != nil && demotedByBoundaryPass(meshB, meshB.Tris[triB[j]], c.NormalWorldB) {
				continue
			}
			manifold.AddOrMerge(c)
			hit = true
		}
	}

	if !hit {
		if c, ok := meshContainmentContact(shapeA, shapeB, wtA, wtB, guessA, guessB); ok {
			manifold.AddOrMerge(c)
			hit = true
		}
	}
	return hit
}

// decompose returns the convex pieces of s placed in world space (s itself,
// if already convex). When s is a *shape.Mesh, it also returns s itself and
// a parallel slice of each returned piece's index into s.Tris, so the
// boundary pass can look up a candidate's source triangle and its mesh
// siblings; both are nil for non-mesh shapes. No spatial index narrows a
// mesh first: decompose returns every triangle in Tris, and the caller
// skips the ones whose bounding box misses the other side's. decompose
// itself just flattens whatever shape tree it is handed into a list of
// convex leaves.
func decompose(s shape.Shape, world geom.RigidTransform) ([]shape.Shape, []geom.RigidTransform, *shape.Mesh, []int) {
	switch v := s.(type) {
	case *shape.Compound:
		shapes := make([]shape.Shape, 0, len(v.Children))
		xforms := make([]geom.RigidTransform, 0, len(v.Children))
		for _, ch := range v.Children {
			shapes = append(shapes, ch.Shape)
			xforms = append(xforms, world.Combine(ch.Transform))
		}
		return shapes, xforms, nil, nil
	case *shape.Mesh:
		shapes := make([]shape.Shape, 0, len(v.Tris))
		xforms := make([]geom.RigidTransform, 0, len(v.Tris))
		tri := make([]int, 0, len(v.Tris))
		for i, t := range v.Tris {
			shapes = append(shapes, t)
			xforms = append(xforms, world)
			tri = append(tri, i)
		}
		return shapes, xforms, v, tri
	default:
		return []shape.Shape{s}, []geom.RigidTransform{world}, nil, nil
	}
}

// trianglesShareEdge reports whether a and b have at least two vertices in
// common (within a small tolerance), i.e. share an edge of the mesh they
// both belong to.
func trianglesShareEdge(a, b *shape.Triangle) bool {
	const tolSq = 1 << 16 // a tight same-vertex test, looser than exact equality for accumulated transform rounding.
	as := [3]geom.Vector3{a.A, a.B, a.C}
	bs := [3]geom.Vector3{b.A, b.B, b.C}
	shared := 0
	for _, pa := range as {
		for _, pb := range bs {
			if pa.Sub(pb).LenSq().Raw() < tolSq {
				shared++
				break
			}
		}
	}
	return shared >= 2
}

// demotedByBoundaryPass implements §4.4 step 4: if tri (one face of mesh)
// has a neighbour sharing an edge whose own normal is anti-aligned with
// candidateNormal, the candidate is an internal-edge artifact and should
// be dropped rather than folded into the manifold. Grounded on the
// "internal edge" problem Bullet's btGenerateInternalEdgeInfo documents
// (convex sliding across adjacent mesh faces briefly reads a face normal
// that contradicts the surface it's actually resting on); reimplemented
// here from the spec's description rather than that utility's source,
// since no example repo carries a from-scratch version of it. This scans
// every triangle in the mesh per candidate (O(triangle count)) rather than
// a precomputed adjacency cache — acceptable for the same reason
// islandActiveByKey's scan is (space/space.go): a maintenance pass that
// runs once per new candidate contact, not per solver iteration.
func demotedByBoundaryPass(mesh *shape.Mesh, tri *shape.Triangle, candidateNormal geom.Vector3) bool {
	for _, nb := range mesh.Tris {
		if nb == tri || !trianglesShareEdge(tri, nb) {
			continue
		}
		if candidateNormal.Dot(nb.Normal()) < meshBoundaryThreshold {
			return true
		}
	}
	return false
}

// meshContainmentContact implements §4.4 step 5: when a pair's per-triangle
// pass above finds no contact at all, and exactly one side is a solid
// mobile mesh whose interior isn't supposed to be entered, cast a ray from
// the other body's predicted position back to its last known good
// position against the mesh. A hit means the other body tunnelled through
// the mesh's shell this tick and is now embedded inside it; this returns a
// sentinel Interior contact deep enough for the solver to push it back
// out. Mesh-mesh and mesh-compound pairs are out of scope (neither side is
// a plain convex body to ray-cast), matching the spec's "convex position"
// framing for this step.
func meshContainmentContact(shapeA, shapeB shape.Shape, wtA, wtB, guessA, guessB geom.RigidTransform) (Contact, bool) {
	if meshA, ok := shapeA.(*shape.Mesh); ok && meshA.Solid() && meshA.Mobile() && shapeB.Convex() {
		if c, ok := containmentRay(meshA, wtA, wtB, guessB, false); ok {
			return c, true
		}
	}
	if meshB, ok := shapeB.(*shape.Mesh); ok && meshB.Solid() && meshB.Mobile() && shapeA.Convex() {
		if c, ok := containmentRay(meshB, wtB, wtA, guessA, true); ok {
			return c, true
		}
	}
	return Contact{}, false
}

// containmentRay casts the ray from convexGuess (the convex body's
// predicted position this tick) back to convexGood (its last known good
// position) against mesh at meshWorld. meshIsB selects which of the
// manifold's two bodies the mesh is, so the returned contact's
// NormalWorldB ("points from B toward A") is oriented correctly regardless
// of which side the mesh occupies.
func containmentRay(mesh *shape.Mesh, meshWorld, convexGood, convexGuess geom.RigidTransform, meshIsB bool) (Contact, bool) {
	delta := convexGood.Pos.Sub(convexGuess.Pos)
	length := delta.Len()
	if length.AeqZero() {
		return Contact{}, false // body didn't move; nothing to have tunnelled through.
	}
	dir := delta.Scale(fixed.One.SafeDiv(length))

	localOrigin := meshWorld.ToLocal(convexGuess.Pos)
	localDir := meshWorld.ToLocalDir(dir)
	t, localNormal, hit := mesh.RayTest(localOrigin, localDir, length)
	if !hit {
		return Contact{}, false
	}

	worldPoint := convexGuess.Pos.Add(dir.Scale(t))
	worldNormal := meshWorld.ToWorldDir(localNormal)

	// convexGood is the convex body's own current world transform (it is
	// literally the wtA/wtB this package was handed for that side), so its
	// ToLocal gives that body's local-space contact point directly.
	localA, localB := meshWorld.ToLocal(worldPoint), convexGood.ToLocal(worldPoint)
	if meshIsB {
		localA, localB = convexGood.ToLocal(worldPoint), meshWorld.ToLocal(worldPoint)
	} else {
		worldNormal = worldNormal.Neg() // mesh is A: NormalWorldB must point from B toward A, i.e. toward the mesh.
	}

	return Contact{
		LocalA:       localA,
		LocalB:       localB,
		NormalWorldB: worldNormal,
		Tangent:      tangentBasis(worldNormal),
		Distance:     meshContainmentDepth,
		Interior:     true,
		worldA:       worldPoint,
		worldB:       worldPoint,
	}, true
}
