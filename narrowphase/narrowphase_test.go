package narrowphase

import (
	"testing"

	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

func transformAt(x, y, z float64) geom.RigidTransform {
	return geom.RigidTransform{Pos: geom.V3(fixed.FromFloat64(x), fixed.FromFloat64(y), fixed.FromFloat64(z)), Rot: geom.QIdentity}
}

func TestGenerateSphereSphereOverlap(t *testing.T) {
	a := shape.NewSphere(fixed.One, 0)
	b := shape.NewSphere(fixed.One, 0)
	wtA := transformAt(0, 0, 0)
	wtB := transformAt(1.5, 0, 0) // centers 1.5 apart, radii sum 2: overlapping by 0.5
	m := NewManifold(entity.ID(1), entity.ID(2))
	if !Generate(m, a, wtA, wtA, b, wtB, wtB) {
		t.Fatal("expected overlap")
	}
	if len(m.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(m.Contacts))
	}
	c := m.Contacts[0]
	if c.Distance >= 0 {
		t.Errorf("expected negative (penetrating) distance, got %v", c.Distance.Float64())
	}
	// minimum-separation-distance invariant: the reported distance must not
	// be more negative than the true penetration depth (radii sum - center
	// distance = 0.5).
	wantDepth := fixed.FromFloat64(-0.5)
	if c.Distance.Sub(wantDepth).Abs() > fixed.FromFloat64(0.01) {
		t.Errorf("distance = %v, want ~%v", c.Distance.Float64(), wantDepth.Float64())
	}
}

func TestGenerateSphereSphereSeparated(t *testing.T) {
	a := shape.NewSphere(fixed.One, 0)
	b := shape.NewSphere(fixed.One, 0)
	wtA := transformAt(0, 0, 0)
	wtB := transformAt(5, 0, 0)
	m := NewManifold(entity.ID(1), entity.ID(2))
	if Generate(m, a, wtA, wtA, b, wtB, wtB) {
		t.Fatal("expected no overlap")
	}
	if len(m.Contacts) != 0 {
		t.Errorf("expected no contacts, got %d", len(m.Contacts))
	}
}

func TestGenerateConvexConvexBoxBoxOverlap(t *testing.T) {
	a := shape.NewBox(fixed.One, fixed.One, fixed.One, 0)
	b := shape.NewBox(fixed.One, fixed.One, fixed.One, 0)
	wtA := transformAt(0, 0, 0)
	wtB := transformAt(1.5, 0, 0) // half-extents sum to 2, centers 1.5 apart: overlapping
	m := NewManifold(entity.ID(1), entity.ID(2))
	if !Generate(m, a, wtA, wtA, b, wtB, wtB) {
		t.Fatal("expected overlapping boxes to generate a contact")
	}
	if len(m.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(m.Contacts))
	}
	if m.Contacts[0].Distance >= 0 {
		t.Error("expected penetrating distance")
	}
}

func TestGenerateConvexConvexBoxBoxSeparated(t *testing.T) {
	a := shape.NewBox(fixed.One, fixed.One, fixed.One, 0)
	b := shape.NewBox(fixed.One, fixed.One, fixed.One, 0)
	wtA := transformAt(0, 0, 0)
	wtB := transformAt(10, 0, 0)
	m := NewManifold(entity.ID(1), entity.ID(2))
	if Generate(m, a, wtA, wtA, b, wtB, wtB) {
		t.Fatal("expected no overlap for distant boxes")
	}
}

func TestManifoldRefreshDropsBrokenContacts(t *testing.T) {
	m := NewManifold(entity.ID(1), entity.ID(2))
	m.Contacts = append(m.Contacts, Contact{
		LocalA:       geom.Vector3{},
		LocalB:       geom.Vector3{},
		NormalWorldB: geom.V3(fixed.One, 0, 0), // points from B toward A
		Distance:     fixed.FromFloat64(-0.01),
	})
	// Moving the bodies apart along the normal should push the recomputed
	// distance past the breaking threshold, and the contact should be
	// dropped.
	m.Refresh(transformAt(0, 0, 0), transformAt(-10, 0, 0))
	if len(m.Contacts) != 0 {
		t.Errorf("expected contact to be dropped after refresh, got %d", len(m.Contacts))
	}
}

func TestManifoldAddOrMergeReducesToFour(t *testing.T) {
	m := NewManifold(entity.ID(1), entity.ID(2))
	pts := []geom.Vector3{
		geom.V3(fixed.One, fixed.One, 0),
		geom.V3(fixed.One.Neg(), fixed.One, 0),
		geom.V3(fixed.One, fixed.One.Neg(), 0),
		geom.V3(fixed.One.Neg(), fixed.One.Neg(), 0),
		geom.V3(0, 0, 0), // deepest
	}
	for i, p := range pts {
		dist := fixed.FromFloat64(-0.01)
		if i == len(pts)-1 {
			dist = fixed.FromFloat64(-0.5) // clearly the deepest point
		}
		m.AddOrMerge(Contact{LocalA: p, NormalWorldB: geom.V3(0, fixed.One, 0), Distance: dist})
	}
	if len(m.Contacts) != 4 {
		t.Fatalf("expected manifold capped at 4 points, got %d", len(m.Contacts))
	}
	foundDeepest := false
	for _, c := range m.Contacts {
		if c.LocalA.Eq(pts[len(pts)-1]) {
			foundDeepest = true
		}
	}
	if !foundDeepest {
		t.Error("expected the deepest point to survive reduceToFour")
	}
}

func TestGenerateCompoundDecomposes(t *testing.T) {
	near := shape.Child{Shape: shape.NewSphere(fixed.One, 0), Transform: geom.Identity()}
	far := shape.Child{Shape: shape.NewSphere(fixed.One, 0), Transform: transformAt(100, 0, 0)}
	compound := shape.NewCompound(0, near, far) // 2 children: Convex() reports false, forcing decomposition.
	other := shape.NewSphere(fixed.One, 0)
	m := NewManifold(entity.ID(1), entity.ID(2))
	compoundWt := transformAt(0, 0, 0)
	otherWt := transformAt(1.5, 0, 0)
	if !Generate(m, compound, compoundWt, compoundWt, other, otherWt, otherWt) {
		t.Fatal("expected compound-vs-sphere overlap to be detected via its near child")
	}
}

// floorNormalUp builds a CounterClockwise triangle in the XZ plane whose
// Normal() faces +Y, used by the boundary-pass tests below.
func floorNormalUp(a, b, c geom.Vector3) *shape.Triangle {
	return shape.NewTriangle(a, b, c, shape.CounterClockwise, 0)
}

func TestTrianglesShareEdge(t *testing.T) {
	t1 := floorNormalUp(geom.V3(0, 0, 0), geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0))
	shared := shape.NewTriangle(geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0), geom.V3(fixed.One, 0, fixed.One), shape.CounterClockwise, 0)
	disjoint := shape.NewTriangle(geom.V3(10, 0, 10), geom.V3(11, 0, 10), geom.V3(10, 0, 11), shape.CounterClockwise, 0)

	if !trianglesShareEdge(t1, shared) {
		t.Error("expected t1 and shared to share an edge")
	}
	if trianglesShareEdge(t1, disjoint) {
		t.Error("expected t1 and disjoint to not share an edge")
	}
}

func TestDemotedByBoundaryPassAlignedNeighbourSurvives(t *testing.T) {
	t1 := floorNormalUp(geom.V3(0, 0, 0), geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0))
	// Same vertices as t1's shared edge, wound Clockwise so its Normal()
	// also faces +Y: an aligned neighbour, not an internal-edge artifact.
	aligned := shape.NewTriangle(geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0), geom.V3(fixed.One, 0, fixed.One), shape.Clockwise, 0)
	mesh := shape.NewStaticMesh([]*shape.Triangle{t1, aligned}, 0)

	if demotedByBoundaryPass(mesh, t1, t1.Normal()) {
		t.Error("an aligned neighbour must not demote the candidate")
	}
}

func TestDemotedByBoundaryPassAntiAlignedNeighbourDemoted(t *testing.T) {
	t1 := floorNormalUp(geom.V3(0, 0, 0), geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0))
	// Same vertices as the aligned case but wound CounterClockwise, so its
	// Normal() faces -Y: the classic internal-edge artifact.
	antiAligned := shape.NewTriangle(geom.V3(0, 0, fixed.One), geom.V3(fixed.One, 0, 0), geom.V3(fixed.One, 0, fixed.One), shape.CounterClockwise, 0)
	mesh := shape.NewStaticMesh([]*shape.Triangle{t1, antiAligned}, 0)

	if !demotedByBoundaryPass(mesh, t1, t1.Normal()) {
		t.Error("an anti-aligned neighbour should demote the candidate")
	}
}

// containmentFloor builds a single large DoubleSided triangle spanning the
// XZ plane at y=0 and covering the origin, solid and mobile so the
// mesh-containment pass (§4.4 step 5) is eligible to run against it.
func containmentFloor() *shape.Mesh {
	tri := shape.NewTriangle(
		geom.V3(fixed.FromFloat64(-5), 0, fixed.FromFloat64(-5)),
		geom.V3(fixed.FromFloat64(5), 0, fixed.FromFloat64(-5)),
		geom.V3(0, 0, fixed.FromFloat64(5)),
		shape.DoubleSided, 0,
	)
	return shape.NewSolidMobileMesh([]*shape.Triangle{tri}, 0)
}

func TestMeshContainmentContactDetectsTunnelling(t *testing.T) {
	mesh := containmentFloor()
	ball := shape.NewSphere(fixed.One, 0)
	meshWorld := geom.Identity()
	good := transformAt(0, 2, 0)  // last known good position: above the floor
	guess := transformAt(0, -1, 0) // predicted position this tick: tunnelled through, now below

	c, ok := meshContainmentContact(mesh, ball, meshWorld, good, meshWorld, guess)
	if !ok {
		t.Fatal("expected the ray back to the good position to hit the floor")
	}
	if !c.Interior {
		t.Error("expected an Interior sentinel contact")
	}
	if c.Distance >= 0 {
		t.Errorf("expected a deep fixed penetration distance, got %v", c.Distance.Float64())
	}
	if c.NormalWorldB.Dot(geom.V3(0, fixed.One, 0)).Abs() < fixed.FromFloat64(0.9) {
		t.Errorf("expected the containment normal to be roughly vertical, got %+v", c.NormalWorldB)
	}
}

func TestMeshContainmentContactNoHitWithoutTunnelling(t *testing.T) {
	mesh := containmentFloor()
	ball := shape.NewSphere(fixed.One, 0)
	meshWorld := geom.Identity()
	good := transformAt(0, 2, 0)
	guess := transformAt(0, 1, 0) // stayed above the floor; never crossed it

	if _, ok := meshContainmentContact(mesh, ball, meshWorld, good, meshWorld, guess); ok {
		t.Error("expected no containment contact when the body never crossed the floor")
	}
}
