// Package shape implements the convex and non-convex collision primitives
// named in spec §3/§4.2, grounded on the teacher's physics/shape.go
// (Type/Volume/Aabb/Inertia contract), generalized to fixed-point and to
// the spec's support-function + shape-description contract.
package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Description bundles the precomputed properties every shape exposes:
// volume, the diagonal of the local-space inertia distribution (about the
// shape's own principal axes, matching the teacher's body.iit Vector3),
// minimum/maximum bounding radii about the local origin, and the shape's
// collision margin (the implicit Minkowski-sum inflation, §4.2).
type Description struct {
	Volume             fixed.Fix64
	InertiaDiag        geom.Vector3
	MinRadius, MaxRadius fixed.Fix64
	Margin             fixed.Fix64
}

// Sidedness controls how a triangle's normal sign is interpreted (§4.2).
type Sidedness int

const (
	Clockwise Sidedness = iota
	CounterClockwise
	DoubleSided
)

// Shape is a local-space, origin-centered collision primitive. Shapes are
// immutable after construction (§3); a mutation (e.g. Compound.Add) must go
// through a rebuild that calls back any registered "shape changed" hook.
type Shape interface {
	// Describe returns the shape's precomputed description.
	Describe() Description

	// Convex reports whether GJK/EPA may be used against this shape
	// directly, or whether the caller must decompose it first (meshes,
	// compounds).
	Convex() bool

	// Support returns the extreme point of the shape along dir (local
	// space, no margin applied — callers add Describe().Margin along dir
	// themselves, matching the teacher's support.go contract).
	Support(dir geom.Vector3) geom.Vector3

	// LocalBoundingBox returns the shape's AABB after being placed by
	// transform, inflated by the shape's own margin.
	LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox

	// RayTest intersects a local-space ray against the shape.
	RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (t fixed.Fix64, normal geom.Vector3, hit bool)
}

// Notifier is implemented by shapes whose geometry can change after
// construction (compounds, mobile meshes); changes raise a "shape changed"
// event to every registered observer (§3).
type Notifier interface {
	OnChanged(fn func())
}

// supportAabb computes an AABB by probing Support along the six world axes
// transformed into local directions — a reusable helper for convex shapes
// whose LocalBoundingBox would otherwise be boilerplate.
func supportAabb(s Shape, t geom.RigidTransform, margin fixed.Fix64) geom.BoundingBox {
	axes := [6]geom.Vector3{
		{X: fixed.One}, {X: -fixed.One},
		{Y: fixed.One}, {Y: -fixed.One},
		{Z: fixed.One}, {Z: -fixed.One},
	}
	var min, max geom.Vector3
	for i, a := range axes {
		localDir := t.ToLocalDir(a)
		p := s.Support(localDir)
		world := t.ToWorld(p)
		switch i {
		case 0:
			max.X = world.X
		case 1:
			min.X = world.X
		case 2:
			max.Y = world.Y
		case 3:
			min.Y = world.Y
		case 4:
			max.Z = world.Z
		case 5:
			min.Z = world.Z
		}
	}
	return geom.NewBoundingBox(min, max).Expanded(margin)
}
