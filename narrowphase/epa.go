package narrowphase

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

type face struct{ i0, i1, i2 int }
type edge struct{ i0, i1 int }

// faceNormalAndDistance returns the outward-facing normal of a polytope
// face and its (non-negative) distance from the origin, grounded on
// epa.go's get_face_normal_and_distance_to_origin (the tie-break-by-other-
// vertices branch for an exactly-zero distance is omitted: Q31.32 Dot
// products land on exact zero far less often than float64 ones, and when
// they do, either orientation of a degenerate face is an equally valid
// starting point for a subsequent expansion).
func faceNormalAndDistance(poly []geom.Vector3, f face) (geom.Vector3, fixed.Fix64) {
	a, b, c := poly[f.i0], poly[f.i1], poly[f.i2]
	n := b.Sub(a).Cross(c.Sub(a)).Unit()
	d := n.Dot(a)
	if d < 0 {
		n = n.Neg()
		d = -d
	}
	return n, d
}

// polytopeFromSimplex seeds the EPA polytope from GJK's terminating
// tetrahedron, grounded on epa.go's polytope_from_gjk_simplex.
func polytopeFromSimplex(s simplex) ([]geom.Vector3, []face) {
	poly := []geom.Vector3{s.a, s.b, s.c, s.d}
	faces := []face{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}, {1, 2, 3}}
	return poly, faces
}

// addEdge toggles an edge in the silhouette edge list: pushing it if it is
// not yet present, removing it (it is now shared by two visible faces, so
// it cannot be a silhouette edge) if it is, grounded on epa.go's add_edge.
func addEdge(edges []edge, e edge) []edge {
	for i, cur := range edges {
		if (cur.i0 == e.i0 && cur.i1 == e.i1) || (cur.i0 == e.i1 && cur.i1 == e.i0) {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return append(edges, e)
}

// epaPenetration expands the GJK terminating simplex into the Minkowski
// difference's boundary until the closest face to the origin stops
// changing (within tolerance), returning that face's normal and distance
// (the penetration depth), grounded on epa.go's overall expansion loop.
func epaPenetration(a, b pair, start simplex) (normal geom.Vector3, depth fixed.Fix64, ok bool) {
	poly, faces := polytopeFromSimplex(start)
	const maxIterations = 32
	tolerance := fixed.FromFloat64(1e-4)

	for iter := 0; iter < maxIterations; iter++ {
		closest := 0
		closestDist := fixed.MaxValue
		var closestNormal geom.Vector3
		dists := make([]fixed.Fix64, len(faces))
		normals := make([]geom.Vector3, len(faces))
		for i, f := range faces {
			n, d := faceNormalAndDistance(poly, f)
			normals[i], dists[i] = n, d
			if d < closestDist {
				closestDist, closest, closestNormal = d, i, n
			}
		}
		if len(faces) == 0 {
			return geom.Vector3{}, 0, false
		}
		_ = closest

		support := supportOfDifference(a, b, closestNormal)
		supportDist := closestNormal.Dot(support)

		if supportDist.SafeSub(closestDist) < tolerance {
			return closestNormal, closestDist, true
		}

		// Expand: remove every face the new point can "see", collecting the
		// silhouette edges, then fan the silhouette to the new point.
		var silhouette []edge
		keep := faces[:0:0]
		for i, f := range faces {
			if normals[i].Dot(support.Sub(poly[f.i0])) > 0 {
				silhouette = addEdge(silhouette, edge{f.i0, f.i1})
				silhouette = addEdge(silhouette, edge{f.i1, f.i2})
				silhouette = addEdge(silhouette, edge{f.i2, f.i0})
			} else {
				keep = append(keep, f)
			}
		}
		if len(silhouette) == 0 {
			// Support point is not visible from any face: converged.
			return closestNormal, closestDist, true
		}
		poly = append(poly, support)
		newIdx := len(poly) - 1
		for _, e := range silhouette {
			keep = append(keep, face{e.i0, e.i1, newIdx})
		}
		faces = keep
	}
	return geom.Vector3{}, 0, false
}
