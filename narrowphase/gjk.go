package narrowphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/shape"
)

// pair bundles a shape with the world transform placing it, the minimal
// context GJK/EPA need to support-query a body in world space.
type pair struct {
	Shape shape.Shape
	World geom.RigidTransform
}

func (p pair) support(worldDir geom.Vector3) geom.Vector3 {
	local := p.World.ToLocalDir(worldDir)
	s := p.Shape.Support(local.Unit())
	margin := p.Shape.Describe().Margin
	if !margin.AeqZero() {
		s = s.Add(local.Unit().Scale(margin))
	}
	return p.World.ToWorld(s)
}

// supportOfDifference returns the support point of the Minkowski difference
// a-b along dir, grounded on support.go's support_point_of_minkowski_difference.
func supportOfDifference(a, b pair, dir geom.Vector3) geom.Vector3 {
	return a.support(dir).Sub(b.support(dir.Neg()))
}

// simplex is the GJK working set: up to 4 points of the Minkowski
// difference, most-recently-added first (simplex.a), mirroring gjk_Simplex.
type simplex struct {
	a, b, c, d geom.Vector3
	num        int
}

func (s *simplex) push(p geom.Vector3) {
	switch s.num {
	case 1:
		s.b = s.a
	case 2:
		s.c = s.b
		s.b = s.a
	case 3:
		s.d = s.c
		s.c = s.b
		s.b = s.a
	}
	s.a = p
	s.num++
}

func tripleCross(a, b, c geom.Vector3) geom.Vector3 { return a.Cross(b).Cross(c) }

// doSimplex advances the simplex toward containing the origin (or detects
// containment), mirroring do_simplex_2/3/4 but collapsed into one function
// per arity via the same region tests.
func doSimplex(s *simplex, dir *geom.Vector3) bool {
	switch s.num {
	case 2:
		return doSimplex2(s, dir)
	case 3:
		return doSimplex3(s, dir)
	case 4:
		return doSimplex4(s, dir)
	}
	return false
}

func doSimplex2(s *simplex, dir *geom.Vector3) bool {
	a, b := s.a, s.b
	ao := a.Neg()
	ab := b.Sub(a)
	if ab.Dot(ao) >= 0 {
		s.num = 2
		*dir = tripleCross(ab, ao, ab)
	} else {
		s.num = 1
		*dir = ao
	}
	return false
}

func doSimplex3(s *simplex, dir *geom.Vector3) bool {
	a, b, c := s.a, s.b, s.c
	ao := a.Neg()
	ab := b.Sub(a)
	ac := c.Sub(a)
	abc := ab.Cross(ac)

	edgeAB := func() {
		s.b, s.num = b, 2
		*dir = tripleCross(ab, ao, ab)
	}
	vertexA := func() {
		s.num = 1
		*dir = ao
	}

	if abc.Cross(ac).Dot(ao) >= 0 {
		switch {
		case ac.Dot(ao) >= 0:
			s.b, s.num = c, 2
			*dir = tripleCross(ac, ao, ac)
		case ab.Dot(ao) >= 0:
			edgeAB()
		default:
			vertexA()
		}
		return false
	}
	if ab.Cross(abc).Dot(ao) >= 0 {
		if ab.Dot(ao) >= 0 {
			edgeAB()
		} else {
			vertexA()
		}
		return false
	}
	if abc.Dot(ao) >= 0 {
		s.b, s.c, s.num = b, c, 3
		*dir = abc
	} else {
		s.b, s.c, s.num = c, b, 3
		*dir = abc.Neg()
	}
	return false
}

func doSimplex4(s *simplex, dir *geom.Vector3) bool {
	a, b, c, d := s.a, s.b, s.c, s.d
	ao := a.Neg()
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	abc := ab.Cross(ac)
	acd := ac.Cross(ad)
	adb := ad.Cross(ab)

	// Simplified vs. gjk.go's full 7-branch region switch: rather than
	// testing every triangle/edge/vertex Voronoi region of the tetrahedron
	// directly, drop the point not on the origin's side and re-run the
	// 3-point case against the resulting face. One extra iteration versus
	// the teacher's version, same convergence guarantee.
	onSide := func(n geom.Vector3) bool { return n.Dot(ao) >= 0 }
	if onSide(abc) {
		s.b, s.c, s.num = b, c, 3
		return doSimplex3(s, dir)
	}
	if onSide(acd) {
		s.b, s.c, s.num = c, d, 3
		return doSimplex3(s, dir)
	}
	if onSide(adb) {
		s.b, s.c, s.num = d, b, 3
		return doSimplex3(s, dir)
	}
	return true // origin is inside the tetrahedron: intersection confirmed.
}

// gjkIntersect reports whether the two shapes (placed in world space)
// overlap, and if so returns the terminating tetrahedron simplex for EPA
// (grounded on gjk.go's gjk_collides).
func gjkIntersect(a, b pair) (simplex, bool) {
	var s simplex
	dir := geom.V3(0, 0, fixed.One)
	s.a = supportOfDifference(a, b, dir)
	s.num = 1
	dir = s.a.Neg()

	for i := 0; i < 64; i++ {
		next := supportOfDifference(a, b, dir)
		if next.Dot(dir) < 0 {
			return s, false
		}
		s.push(next)
		if doSimplex(&s, &dir) {
			return s, true
		}
	}
	return s, false
}
