package geom

import "github.com/qrigid/engine/fixed"

// Matrix3x3 is a row-major 3x3 matrix, used for inertia tensors and pure
// rotation bases.
type Matrix3x3 struct {
	M00, M01, M02 fixed.Fix64
	M10, M11, M12 fixed.Fix64
	M20, M21, M22 fixed.Fix64
}

// Identity3 is the 3x3 identity matrix.
var Identity3 = Matrix3x3{
	M00: fixed.One, M11: fixed.One, M22: fixed.One,
}

// Diag3 builds a diagonal matrix from 3 values (used for inertia tensors).
func Diag3(x, y, z fixed.Fix64) Matrix3x3 {
	return Matrix3x3{M00: x, M11: y, M22: z}
}

// Mul returns m*a.
func (m Matrix3x3) Mul(a Matrix3x3) Matrix3x3 {
	return Matrix3x3{
		M00: m.M00.SafeMul(a.M00).SafeAdd(m.M01.SafeMul(a.M10)).SafeAdd(m.M02.SafeMul(a.M20)),
		M01: m.M00.SafeMul(a.M01).SafeAdd(m.M01.SafeMul(a.M11)).SafeAdd(m.M02.SafeMul(a.M21)),
		M02: m.M00.SafeMul(a.M02).SafeAdd(m.M01.SafeMul(a.M12)).SafeAdd(m.M02.SafeMul(a.M22)),

		M10: m.M10.SafeMul(a.M00).SafeAdd(m.M11.SafeMul(a.M10)).SafeAdd(m.M12.SafeMul(a.M20)),
		M11: m.M10.SafeMul(a.M01).SafeAdd(m.M11.SafeMul(a.M11)).SafeAdd(m.M12.SafeMul(a.M21)),
		M12: m.M10.SafeMul(a.M02).SafeAdd(m.M11.SafeMul(a.M12)).SafeAdd(m.M12.SafeMul(a.M22)),

		M20: m.M20.SafeMul(a.M00).SafeAdd(m.M21.SafeMul(a.M10)).SafeAdd(m.M22.SafeMul(a.M20)),
		M21: m.M20.SafeMul(a.M01).SafeAdd(m.M21.SafeMul(a.M11)).SafeAdd(m.M22.SafeMul(a.M21)),
		M22: m.M20.SafeMul(a.M02).SafeAdd(m.M21.SafeMul(a.M12)).SafeAdd(m.M22.SafeMul(a.M22)),
	}
}

// Transpose returns the transpose of m.
func (m Matrix3x3) Transpose() Matrix3x3 {
	return Matrix3x3{
		M00: m.M00, M01: m.M10, M02: m.M20,
		M10: m.M01, M11: m.M11, M12: m.M21,
		M20: m.M02, M21: m.M12, M22: m.M22,
	}
}

// ScaleCols returns m with each column scaled by the corresponding component of
// v — used to apply a diagonal inertia to a rotated basis:
// R * diag(iit) * R^T is built as R.ScaleCols(iit).Mul(R.Transpose()).
func (m Matrix3x3) ScaleCols(v Vector3) Matrix3x3 {
	return Matrix3x3{
		M00: m.M00.SafeMul(v.X), M01: m.M01.SafeMul(v.Y), M02: m.M02.SafeMul(v.Z),
		M10: m.M10.SafeMul(v.X), M11: m.M11.SafeMul(v.Y), M12: m.M12.SafeMul(v.Z),
		M20: m.M20.SafeMul(v.X), M21: m.M21.SafeMul(v.Y), M22: m.M22.SafeMul(v.Z),
	}
}

// FromQuaternion builds a rotation matrix from a unit quaternion.
func FromQuaternion(q Quaternion) Matrix3x3 {
	x2, y2, z2 := q.X.SafeAdd(q.X), q.Y.SafeAdd(q.Y), q.Z.SafeAdd(q.Z)
	xx, yy, zz := q.X.SafeMul(x2), q.Y.SafeMul(y2), q.Z.SafeMul(z2)
	xy, xz, yz := q.X.SafeMul(y2), q.X.SafeMul(z2), q.Y.SafeMul(z2)
	wx, wy, wz := q.W.SafeMul(x2), q.W.SafeMul(y2), q.W.SafeMul(z2)
	return Matrix3x3{
		M00: fixed.One.SafeSub(yy.SafeAdd(zz)), M01: xy.SafeSub(wz), M02: xz.SafeAdd(wy),
		M10: xy.SafeAdd(wz), M11: fixed.One.SafeSub(xx.SafeAdd(zz)), M12: yz.SafeSub(wx),
		M20: xz.SafeSub(wy), M21: yz.SafeAdd(wx), M22: fixed.One.SafeSub(xx.SafeAdd(yy)),
	}
}
