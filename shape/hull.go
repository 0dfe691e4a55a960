package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// ConvexHull is the convex hull of an explicit point cloud, support-mapped
// by brute-force scan (point counts for hulls used as collision shapes are
// small — tens of vertices — so this avoids carrying a full half-edge
// structure for what the narrow phase only ever queries via Support).
type ConvexHull struct {
	Points []geom.Vector3
	margin fixed.Fix64
}

func NewConvexHull(points []geom.Vector3, margin fixed.Fix64) *ConvexHull {
	return &ConvexHull{Points: points, margin: margin}
}

func (h *ConvexHull) Convex() bool { return true }

func (h *ConvexHull) Describe() Description {
	if len(h.Points) == 0 {
		return Description{Margin: h.margin}
	}
	centroid := geom.Vector3{}
	for _, p := range h.Points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(fixed.One.SafeDiv(fixed.FromInt(int64(len(h.Points)))))
	minR, maxR := fixed.MaxValue, fixed.Zero
	for _, p := range h.Points {
		d := p.Sub(centroid).Len()
		if d < minR {
			minR = d
		}
		if d > maxR {
			maxR = d
		}
	}
	// Inertia approximated from the bounding sphere's uniform-density
	// moment; exact hull inertia needs tetrahedral decomposition, out of
	// scope for the support-only representation used here.
	i := fixed.Two.SafeMul(maxR).Mul(maxR).SafeDiv(fixed.FromInt(5))
	return Description{Volume: maxR.Mul(maxR).Mul(maxR), InertiaDiag: geom.V3(i, i, i), MinRadius: minR, MaxRadius: maxR, Margin: h.margin}
}

func (h *ConvexHull) Support(dir geom.Vector3) geom.Vector3 {
	if len(h.Points) == 0 {
		return geom.Vector3{}
	}
	best, bestD := h.Points[0], h.Points[0].Dot(dir)
	for _, p := range h.Points[1:] {
		if d := p.Dot(dir); d > bestD {
			best, bestD = p, d
		}
	}
	return best
}

func (h *ConvexHull) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	if len(h.Points) == 0 {
		return geom.BoundingBox{}
	}
	p0 := t.ToWorld(h.Points[0])
	box := geom.NewBoundingBox(p0, p0)
	for _, p := range h.Points[1:] {
		w := t.ToWorld(p)
		box = box.Merge(geom.NewBoundingBox(w, w))
	}
	return box.Expanded(h.margin)
}

func (h *ConvexHull) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	box := h.LocalBoundingBox(geom.Identity())
	t, hit := box.RayIntersect(origin, dir, maxT)
	if !hit {
		return 0, geom.Vector3{}, false
	}
	p := origin.Add(dir.Scale(t))
	return t, p.Sub(box.Center()).Unit(), true
}
