// Package geom provides 3D vector, quaternion, matrix and transform math
// over fixed.Fix64, mirroring the teacher's math/lin API shape (SetS/GetS/
// Set/Eq/Aeq, pointer-receiver mutators returning the receiver) generalized
// from float64 to fixed-point so the whole geometry layer stays deterministic.
package geom

import "github.com/qrigid/engine/fixed"

// Vector3 is a 3-element vector, also used as a point.
type Vector3 struct {
	X, Y, Z fixed.Fix64
}

// V3 builds a Vector3 from components.
func V3(x, y, z fixed.Fix64) Vector3 { return Vector3{x, y, z} }

// Zero3 is the zero vector.
var Zero3 = Vector3{}

// SetS sets the vector elements, returning the receiver.
func (v *Vector3) SetS(x, y, z fixed.Fix64) *Vector3 {
	v.X, v.Y, v.Z = x, y, z
	return v
}

// GetS returns the vector elements.
func (v Vector3) GetS() (x, y, z fixed.Fix64) { return v.X, v.Y, v.Z }

// Set copies a into v, returning the receiver.
func (v *Vector3) Set(a Vector3) *Vector3 { *v = a; return v }

// Eq reports exact equality.
func (v Vector3) Eq(a Vector3) bool { return v.X == a.X && v.Y == a.Y && v.Z == a.Z }

// Aeq reports almost-equality within fixed.Epsilon per component.
func (v Vector3) Aeq(a Vector3) bool {
	return v.X.Aeq(a.X) && v.Y.Aeq(a.Y) && v.Z.Aeq(a.Z)
}

// Add returns v+a.
func (v Vector3) Add(a Vector3) Vector3 {
	return Vector3{v.X.SafeAdd(a.X), v.Y.SafeAdd(a.Y), v.Z.SafeAdd(a.Z)}
}

// Sub returns v-a.
func (v Vector3) Sub(a Vector3) Vector3 {
	return Vector3{v.X.SafeSub(a.X), v.Y.SafeSub(a.Y), v.Z.SafeSub(a.Z)}
}

// Neg returns -v.
func (v Vector3) Neg() Vector3 { return Vector3{-v.X, -v.Y, -v.Z} }

// Scale returns v scaled by s.
func (v Vector3) Scale(s fixed.Fix64) Vector3 {
	return Vector3{v.X.SafeMul(s), v.Y.SafeMul(s), v.Z.SafeMul(s)}
}

// Mul returns the component-wise product of v and a.
func (v Vector3) Mul(a Vector3) Vector3 {
	return Vector3{v.X.SafeMul(a.X), v.Y.SafeMul(a.Y), v.Z.SafeMul(a.Z)}
}

// Dot returns the dot product of v and a.
func (v Vector3) Dot(a Vector3) fixed.Fix64 {
	return v.X.SafeMul(a.X).SafeAdd(v.Y.SafeMul(a.Y)).SafeAdd(v.Z.SafeMul(a.Z))
}

// Cross returns the cross product v x a.
func (v Vector3) Cross(a Vector3) Vector3 {
	return Vector3{
		v.Y.SafeMul(a.Z).SafeSub(v.Z.SafeMul(a.Y)),
		v.Z.SafeMul(a.X).SafeSub(v.X.SafeMul(a.Z)),
		v.X.SafeMul(a.Y).SafeSub(v.Y.SafeMul(a.X)),
	}
}

// LenSq returns the squared length.
func (v Vector3) LenSq() fixed.Fix64 { return v.Dot(v) }

// Len returns the length.
func (v Vector3) Len() fixed.Fix64 { return v.LenSq().SqrtClamped() }

// AeqZero reports whether v is within epsilon of the zero vector.
func (v Vector3) AeqZero() bool { return v.LenSq() < fixed.Epsilon }

// Unit returns v normalized to unit length. The zero vector normalizes to
// itself (division-by-zero-yields-MAX policy would otherwise poison callers
// with a garbage direction).
func (v Vector3) Unit() Vector3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(fixed.One.SafeDiv(l))
}

// Lerp linearly interpolates from v to a by ratio t.
func (v Vector3) Lerp(a Vector3, t fixed.Fix64) Vector3 {
	return v.Add(a.Sub(v).Scale(t))
}

// MulM3 returns m*v (matrix-vector product), used throughout the solver for
// inertia-tensor application.
func (v Vector3) MulM3(m Matrix3x3) Vector3 {
	return Vector3{
		m.M00.SafeMul(v.X).SafeAdd(m.M01.SafeMul(v.Y)).SafeAdd(m.M02.SafeMul(v.Z)),
		m.M10.SafeMul(v.X).SafeAdd(m.M11.SafeMul(v.Y)).SafeAdd(m.M12.SafeMul(v.Z)),
		m.M20.SafeMul(v.X).SafeAdd(m.M21.SafeMul(v.Y)).SafeAdd(m.M22.SafeMul(v.Z)),
	}
}
