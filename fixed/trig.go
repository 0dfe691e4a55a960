package fixed

import "math"

// lutSize is the number of samples across the first quadrant, [0, Pi/2].
// Values between samples are linearly interpolated, per spec §4.1.
const lutSize = 1024

var sinLUT [lutSize + 1]Fix64
var atanLUT [lutSize + 1]Fix64 // atan(t) for t in [0,1]

func init() {
	for i := 0; i <= lutSize; i++ {
		t := float64(i) / float64(lutSize)
		sinLUT[i] = FromFloat64(math.Sin(t * (math.Pi / 2)))
		atanLUT[i] = FromFloat64(math.Atan(t))
	}
}

// Mod returns f modulo m, result always in [0, m) for m > 0.
func (f Fix64) Mod(m Fix64) Fix64 {
	r := f % m
	if r < 0 {
		r += m
	}
	return r
}

func lerpTable(table *[lutSize + 1]Fix64, pos Fix64) Fix64 {
	if pos < 0 {
		pos = 0
	}
	idx := pos.Int()
	if idx >= lutSize {
		return table[lutSize]
	}
	frac := pos - FromInt(idx)
	return Lerp(table[idx], table[idx+1], frac)
}

// lookupSin returns sin(rem) for rem in [0, HalfPi].
func lookupSin(rem Fix64) Fix64 {
	pos := rem.Mul(FromInt(lutSize)).Div(HalfPi)
	return lerpTable(&sinLUT, pos)
}

// sinCosQuadrant returns (sin, cos) of f, reduced into the first quadrant
// via mirroring, per spec §4.1.
func sinCosQuadrant(f Fix64) (sin, cos Fix64) {
	angle := f.Mod(TwoPi)
	quadrant := angle.Div(HalfPi).Int()
	rem := angle - FromInt(quadrant).Mul(HalfPi)
	s := lookupSin(rem)
	c := lookupSin(HalfPi - rem)
	switch quadrant & 3 {
	case 0:
		return s, c
	case 1:
		return c, -s
	case 2:
		return -s, -c
	default:
		return -c, s
	}
}

// Sin returns the sine of f (radians).
func (f Fix64) Sin() Fix64 { s, _ := sinCosQuadrant(f); return s }

// Cos returns the cosine of f (radians).
func (f Fix64) Cos() Fix64 { _, c := sinCosQuadrant(f); return c }

// Tan returns the tangent of f. Returns MaxValue/MinValue where cosine is
// (near) zero, matching the "division by zero yields MAX" policy.
func (f Fix64) Tan() Fix64 {
	s, c := sinCosQuadrant(f)
	return s.SafeDiv(c)
}

// Atan2 returns the angle of the vector (x, y) in [-Pi, Pi], using the
// classic reduce-to-[0,1]-then-adjust-by-quadrant construction over the
// atan LUT.
func Atan2(y, x Fix64) Fix64 {
	if x == 0 && y == 0 {
		return 0
	}
	ax, ay := x.Abs(), y.Abs()
	var base Fix64
	if ax >= ay {
		t := ay.SafeDiv(ax)
		base = lerpTable(&atanLUT, t.Mul(FromInt(lutSize)))
	} else {
		t := ax.SafeDiv(ay)
		base = HalfPi - lerpTable(&atanLUT, t.Mul(FromInt(lutSize)))
	}
	switch {
	case x >= 0 && y >= 0:
		return base
	case x < 0 && y >= 0:
		return Pi - base
	case x < 0 && y < 0:
		return base - Pi
	default:
		return -base
	}
}

// Acos returns the arc-cosine of f, clamped to [-1,1], result in [0, Pi].
func (f Fix64) Acos() (Fix64, error) {
	x := Clamp(f, -One, One)
	s2 := One - x.Mul(x)
	if s2 < 0 {
		s2 = 0
	}
	s, err := s2.Sqrt()
	if err != nil {
		return 0, err
	}
	return Atan2(s, x), nil
}

// Atan returns the arc-tangent of f, result in (-Pi/2, Pi/2).
func (f Fix64) Atan() Fix64 { return Atan2(f, One) }
