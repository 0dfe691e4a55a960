package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Mesh is a non-convex triangle soup. StaticMesh instances never change
// after construction; MobileMesh additionally supports vertex updates and
// raises "shape changed" (§3). Mesh holds no spatial index over Tris, and
// the narrow phase builds none either: a mesh pair visits every triangle,
// skipping those whose bounding box misses the other shape's.
type Mesh struct {
	Tris     []*Triangle
	mobile   bool
	solid    bool
	onChange []func()
	margin   fixed.Fix64
}

// NewStaticMesh builds an immutable triangle-soup shape.
func NewStaticMesh(tris []*Triangle, margin fixed.Fix64) *Mesh {
	return &Mesh{Tris: tris, margin: margin}
}

// NewMobileMesh builds a triangle-soup shape whose vertices can later move.
func NewMobileMesh(tris []*Triangle, margin fixed.Fix64) *Mesh {
	return &Mesh{Tris: tris, mobile: true, margin: margin}
}

// NewSolidMobileMesh builds a mobile mesh whose interior is considered
// filled rather than hollow — the narrow phase's mesh-containment pass
// (§4.4 step 5) only runs against meshes built this way, since the check
// assumes penetrating a thin/open mesh's outer shell entirely means the
// other body ended up "inside" a solid volume rather than having simply
// passed through a one-sided wall.
func NewSolidMobileMesh(tris []*Triangle, margin fixed.Fix64) *Mesh {
	return &Mesh{Tris: tris, mobile: true, solid: true, margin: margin}
}

// Mobile reports whether this mesh's vertices can move (SetVertices).
func (m *Mesh) Mobile() bool { return m.mobile }

// Solid reports whether this mesh's interior should be treated as filled
// for the mesh-containment pass (§4.4 step 5).
func (m *Mesh) Solid() bool { return m.solid }

func (m *Mesh) Convex() bool { return false }

// SetVertices replaces the mesh's triangles (mobile meshes only) and
// raises the "shape changed" notification.
func (m *Mesh) SetVertices(tris []*Triangle) {
	if !m.mobile {
		return
	}
	m.Tris = tris
	for _, fn := range m.onChange {
		fn()
	}
}

func (m *Mesh) OnChanged(fn func()) { m.onChange = append(m.onChange, fn) }

func (m *Mesh) Describe() Description {
	if len(m.Tris) == 0 {
		return Description{Margin: m.margin}
	}
	box := m.Tris[0].LocalBoundingBox(geom.Identity())
	for _, t := range m.Tris[1:] {
		box = box.Merge(t.LocalBoundingBox(geom.Identity()))
	}
	half := box.HalfExtents()
	return Description{
		Volume: 0, InertiaDiag: geom.Vector3{},
		MinRadius: 0, MaxRadius: half.Len(), Margin: m.margin,
	}
}

// Support is not well defined for a non-convex mesh as a whole; present so
// Mesh satisfies Shape, but the narrow phase never calls it directly
// (it dispatches per-triangle instead, per §4.4).
func (m *Mesh) Support(dir geom.Vector3) geom.Vector3 {
	if len(m.Tris) == 0 {
		return geom.Vector3{}
	}
	return m.Tris[0].Support(dir)
}

func (m *Mesh) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	if len(m.Tris) == 0 {
		return geom.BoundingBox{}
	}
	box := m.Tris[0].LocalBoundingBox(t)
	for _, tri := range m.Tris[1:] {
		box = box.Merge(tri.LocalBoundingBox(t))
	}
	return box.Expanded(m.margin)
}

func (m *Mesh) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	bestT, bestN, hit := maxT, geom.Vector3{}, false
	for _, tri := range m.Tris {
		if t, n, ok := tri.RayTest(origin, dir, bestT); ok {
			bestT, bestN, hit = t, n, true
		}
	}
	return bestT, bestN, hit
}
