package geom

import "github.com/qrigid/engine/fixed"

// BoundingBox is an axis-aligned min/max box. Invariant: Min <= Max
// componentwise (§3).
type BoundingBox struct {
	Min, Max Vector3
}

// NewBoundingBox builds a box from min/max, repairing any inverted axis so
// the invariant always holds.
func NewBoundingBox(min, max Vector3) BoundingBox {
	if min.X > max.X {
		min.X, max.X = max.X, min.X
	}
	if min.Y > max.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	if min.Z > max.Z {
		min.Z, max.Z = max.Z, min.Z
	}
	return BoundingBox{min, max}
}

// FromCenterHalfExtents builds a box from a center point and half-extents,
// inflated by margin.
func FromCenterHalfExtents(center, halfExtents Vector3, margin fixed.Fix64) BoundingBox {
	h := Vector3{halfExtents.X.SafeAdd(margin), halfExtents.Y.SafeAdd(margin), halfExtents.Z.SafeAdd(margin)}
	return BoundingBox{center.Sub(h), center.Add(h)}
}

// Merge returns the smallest box containing both a and b.
func Merge(a, b BoundingBox) BoundingBox {
	return BoundingBox{
		Min: Vector3{fixed.Min(a.Min.X, b.Min.X), fixed.Min(a.Min.Y, b.Min.Y), fixed.Min(a.Min.Z, b.Min.Z)},
		Max: Vector3{fixed.Max(a.Max.X, b.Max.X), fixed.Max(a.Max.Y, b.Max.Y), fixed.Max(a.Max.Z, b.Max.Z)},
	}
}

// Merge returns the smallest box containing b and the receiver.
func (b BoundingBox) Merge(a BoundingBox) BoundingBox { return Merge(b, a) }

// Contains reports whether b fully contains a.
func (b BoundingBox) Contains(a BoundingBox) bool {
	return b.Min.X <= a.Min.X && b.Min.Y <= a.Min.Y && b.Min.Z <= a.Min.Z &&
		b.Max.X >= a.Max.X && b.Max.Y >= a.Max.Y && b.Max.Z >= a.Max.Z
}

// Intersects reports whether a and b overlap (touching counts as
// intersecting, so distance==0 boxes still satisfy §8's boundary law).
func Intersects(a, b BoundingBox) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Intersects reports whether b and a overlap.
func (b BoundingBox) Intersects(a BoundingBox) bool { return Intersects(b, a) }

// Center returns the box's midpoint.
func (b BoundingBox) Center() Vector3 { return b.Min.Add(b.Max).Scale(fixed.Half) }

// HalfExtents returns the box's half-size along each axis.
func (b BoundingBox) HalfExtents() Vector3 { return b.Max.Sub(b.Min).Scale(fixed.Half) }

// Volume returns the box's volume.
func (b BoundingBox) Volume() fixed.Fix64 {
	d := b.Max.Sub(b.Min)
	return d.X.SafeMul(d.Y).SafeMul(d.Z)
}

// SurfaceArea returns the box's surface area, used by the SAH insertion
// heuristic (§4.3).
func (b BoundingBox) SurfaceArea() fixed.Fix64 {
	d := b.Max.Sub(b.Min)
	return fixed.Two.SafeMul(d.X.SafeMul(d.Y).SafeAdd(d.Y.SafeMul(d.Z)).SafeAdd(d.Z.SafeMul(d.X)))
}

// Expanded returns b inflated by margin on every side.
func (b BoundingBox) Expanded(margin fixed.Fix64) BoundingBox {
	m := Vector3{margin, margin, margin}
	return BoundingBox{b.Min.Sub(m), b.Max.Add(m)}
}

// RayIntersect performs a slab test against the box, returning the entry
// t-value and whether the ray (origin+dir*t, t in [0,maxT]) hits.
func (b BoundingBox) RayIntersect(origin, dir Vector3, maxT fixed.Fix64) (t fixed.Fix64, hit bool) {
	tmin, tmax := fixed.Zero, maxT
	axes := [3][3]fixed.Fix64{
		{origin.X, dir.X, 0}, {origin.Y, dir.Y, 0}, {origin.Z, dir.Z, 0},
	}
	mins := [3]fixed.Fix64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]fixed.Fix64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		o, d := axes[i][0], axes[i][1]
		if d.AeqZero() {
			if o < mins[i] || o > maxs[i] {
				return 0, false
			}
			continue
		}
		inv := fixed.One.SafeDiv(d)
		t1 := mins[i].SafeSub(o).SafeMul(inv)
		t2 := maxs[i].SafeSub(o).SafeMul(inv)
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = fixed.Max(tmin, t1)
		tmax = fixed.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
