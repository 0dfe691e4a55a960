package geom

import "github.com/qrigid/engine/fixed"

// Quaternion represents an orientation. Stored unit-normalized by contract
// (§3): every mutator that can drift normalization (Integrate) renormalizes
// before returning.
type Quaternion struct {
	X, Y, Z, W fixed.Fix64
}

// QIdentity is the identity orientation.
var QIdentity = Quaternion{W: fixed.One}

// QFromAxisAngle builds a unit quaternion rotating by angle (radians) about
// a unit axis.
func QFromAxisAngle(axis Vector3, angle fixed.Fix64) Quaternion {
	half := angle.Div(fixed.Two)
	s, c := half.Sin(), half.Cos()
	a := axis.Unit()
	return Quaternion{a.X.SafeMul(s), a.Y.SafeMul(s), a.Z.SafeMul(s), c}
}

// Mul returns q*a (compose rotations: apply a, then q).
func (q Quaternion) Mul(a Quaternion) Quaternion {
	return Quaternion{
		X: q.W.SafeMul(a.X).SafeAdd(q.X.SafeMul(a.W)).SafeAdd(q.Y.SafeMul(a.Z)).SafeSub(q.Z.SafeMul(a.Y)),
		Y: q.W.SafeMul(a.Y).SafeSub(q.X.SafeMul(a.Z)).SafeAdd(q.Y.SafeMul(a.W)).SafeAdd(q.Z.SafeMul(a.X)),
		Z: q.W.SafeMul(a.Z).SafeAdd(q.X.SafeMul(a.Y)).SafeSub(q.Y.SafeMul(a.X)).SafeAdd(q.Z.SafeMul(a.W)),
		W: q.W.SafeMul(a.W).SafeSub(q.X.SafeMul(a.X)).SafeSub(q.Y.SafeMul(a.Y)).SafeSub(q.Z.SafeMul(a.Z)),
	}
}

// Conjugate returns the conjugate (= inverse for a unit quaternion).
func (q Quaternion) Conjugate() Quaternion { return Quaternion{-q.X, -q.Y, -q.Z, q.W} }

// LenSq returns the squared length.
func (q Quaternion) LenSq() fixed.Fix64 {
	return q.X.SafeMul(q.X).SafeAdd(q.Y.SafeMul(q.Y)).SafeAdd(q.Z.SafeMul(q.Z)).SafeAdd(q.W.SafeMul(q.W))
}

// Unit returns q normalized. The identity is returned for a near-zero
// quaternion (degenerate input guard, never surfaced per spec §7).
func (q Quaternion) Unit() Quaternion {
	lsq := q.LenSq()
	if lsq.AeqZero() {
		return QIdentity
	}
	l := lsq.SqrtClamped()
	inv := fixed.One.SafeDiv(l)
	return Quaternion{q.X.SafeMul(inv), q.Y.SafeMul(inv), q.Z.SafeMul(inv), q.W.SafeMul(inv)}
}

// RotateVector rotates v by q (q assumed unit).
func (q Quaternion) RotateVector(v Vector3) Vector3 {
	qv := Vector3{q.X, q.Y, q.Z}
	t := qv.Cross(v).Scale(fixed.Two)
	return v.Add(t.Scale(q.W)).Add(qv.Cross(t))
}

// Integrate advances q by angular velocity omega over dt seconds using the
// quaternion derivative dq/dt = 1/2 * omega * q, then renormalizes
// (§4.6 step 4a).
func (q Quaternion) Integrate(omega Vector3, dt fixed.Fix64) Quaternion {
	half := dt.SafeMul(fixed.Half)
	deltaAngle := omega.Scale(half)
	delta := Quaternion{deltaAngle.X, deltaAngle.Y, deltaAngle.Z, 0}
	sum := Quaternion{
		q.X.SafeAdd(delta.Mul(q).X),
		q.Y.SafeAdd(delta.Mul(q).Y),
		q.Z.SafeAdd(delta.Mul(q).Z),
		q.W.SafeAdd(delta.Mul(q).W),
	}
	return sum.Unit()
}

// FromMatrix recovers a unit quaternion from a rotation matrix using the
// standard largest-diagonal-term branch for numerical stability.
func FromMatrix(m Matrix3x3) Quaternion {
	trace := m.M00.SafeAdd(m.M11).SafeAdd(m.M22)
	if trace > 0 {
		s := (trace.SafeAdd(fixed.One)).SqrtClamped().SafeMul(fixed.Two)
		if s == 0 {
			return QIdentity
		}
		inv := fixed.One.SafeDiv(s)
		return Quaternion{
			X: m.M21.SafeSub(m.M12).SafeMul(inv),
			Y: m.M02.SafeSub(m.M20).SafeMul(inv),
			Z: m.M10.SafeSub(m.M01).SafeMul(inv),
			W: s.SafeMul(fixed.Quarter),
		}
	}
	switch {
	case m.M00 > m.M11 && m.M00 > m.M22:
		s := (fixed.One.SafeAdd(m.M00).SafeSub(m.M11).SafeSub(m.M22)).SqrtClamped().SafeMul(fixed.Two)
		if s == 0 {
			return QIdentity
		}
		inv := fixed.One.SafeDiv(s)
		return Quaternion{
			X: s.SafeMul(fixed.Quarter),
			Y: m.M01.SafeAdd(m.M10).SafeMul(inv),
			Z: m.M02.SafeAdd(m.M20).SafeMul(inv),
			W: m.M21.SafeSub(m.M12).SafeMul(inv),
		}
	case m.M11 > m.M22:
		s := (fixed.One.SafeAdd(m.M11).SafeSub(m.M00).SafeSub(m.M22)).SqrtClamped().SafeMul(fixed.Two)
		if s == 0 {
			return QIdentity
		}
		inv := fixed.One.SafeDiv(s)
		return Quaternion{
			X: m.M01.SafeAdd(m.M10).SafeMul(inv),
			Y: s.SafeMul(fixed.Quarter),
			Z: m.M12.SafeAdd(m.M21).SafeMul(inv),
			W: m.M02.SafeSub(m.M20).SafeMul(inv),
		}
	default:
		s := (fixed.One.SafeAdd(m.M22).SafeSub(m.M00).SafeSub(m.M11)).SqrtClamped().SafeMul(fixed.Two)
		if s == 0 {
			return QIdentity
		}
		inv := fixed.One.SafeDiv(s)
		return Quaternion{
			X: m.M02.SafeAdd(m.M20).SafeMul(inv),
			Y: m.M12.SafeAdd(m.M21).SafeMul(inv),
			Z: s.SafeMul(fixed.Quarter),
			W: m.M10.SafeSub(m.M01).SafeMul(inv),
		}
	}
}
