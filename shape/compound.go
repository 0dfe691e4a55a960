package shape

import (
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Child is one element of a Compound: a sub-shape placed at a fixed local
// transform relative to the compound's origin.
type Child struct {
	Shape     Shape
	Transform geom.RigidTransform
}

// Compound aggregates multiple child shapes, each with its own local
// transform. It is non-convex in general; the narrow phase dispatches each
// child independently against the other collidable (§4.4 "convex-compound").
type Compound struct {
	Children []Child
	margin   fixed.Fix64
	onChange []func()
}

func NewCompound(margin fixed.Fix64, children ...Child) *Compound {
	return &Compound{Children: children, margin: margin}
}

// Add appends a child and raises the "shape changed" notification (§3).
func (c *Compound) Add(child Child) {
	c.Children = append(c.Children, child)
	for _, fn := range c.onChange {
		fn()
	}
}

func (c *Compound) OnChanged(fn func()) { c.onChange = append(c.onChange, fn) }

func (c *Compound) Convex() bool { return len(c.Children) == 1 && c.Children[0].Shape.Convex() }

func (c *Compound) Describe() Description {
	var totalVol fixed.Fix64
	var inertia geom.Vector3
	maxR := fixed.Zero
	for _, ch := range c.Children {
		d := ch.Shape.Describe()
		totalVol = totalVol.SafeAdd(d.Volume)
		// parallel-axis shift of each child's inertia to the compound origin.
		off := ch.Transform.Pos
		lsq := off.LenSq()
		shift := geom.V3(lsq.SafeSub(off.X.Mul(off.X)), lsq.SafeSub(off.Y.Mul(off.Y)), lsq.SafeSub(off.Z.Mul(off.Z)))
		inertia = inertia.Add(d.InertiaDiag).Add(shift.Scale(d.Volume))
		r := off.Len().SafeAdd(d.MaxRadius)
		if r > maxR {
			maxR = r
		}
	}
	return Description{Volume: totalVol, InertiaDiag: inertia, MinRadius: 0, MaxRadius: maxR, Margin: c.margin}
}

// Support is only meaningful when Convex() reports true (a single convex
// child); compounds with multiple children are queried child-by-child by
// the narrow phase instead.
func (c *Compound) Support(dir geom.Vector3) geom.Vector3 {
	if len(c.Children) == 0 {
		return geom.Vector3{}
	}
	ch := c.Children[0]
	local := ch.Transform.ToLocalDir(dir)
	return ch.Transform.ToWorld(ch.Shape.Support(local))
}

func (c *Compound) LocalBoundingBox(t geom.RigidTransform) geom.BoundingBox {
	if len(c.Children) == 0 {
		return geom.BoundingBox{}
	}
	box := t.Combine(c.Children[0].Transform).Pos
	result := geom.NewBoundingBox(box, box)
	for _, ch := range c.Children {
		result = result.Merge(ch.Shape.LocalBoundingBox(t.Combine(ch.Transform)))
	}
	return result.Expanded(c.margin)
}

func (c *Compound) RayTest(origin, dir geom.Vector3, maxT fixed.Fix64) (fixed.Fix64, geom.Vector3, bool) {
	bestT, bestN, hit := maxT, geom.Vector3{}, false
	for _, ch := range c.Children {
		lo := ch.Transform.ToLocal(origin)
		ld := ch.Transform.ToLocalDir(dir)
		if t, n, ok := ch.Shape.RayTest(lo, ld, bestT); ok {
			bestT, bestN, hit = t, ch.Transform.ToWorldDir(n), true
		}
	}
	return bestT, bestN, hit
}
