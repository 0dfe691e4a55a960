// Package fixed provides a deterministic Q31.32 fixed-point scalar type.
//
// Fix64 is used for every quantity that flows into simulation state so that
// two platforms given the same inputs produce byte-identical outputs. No
// float32/float64 value may appear on the path that produces a Fix64 used by
// geom, shape, entity, broadphase, narrowphase, constraint, island or solver.
package fixed

import (
	"errors"
	"log/slog"
	"math/bits"
)

// Fix64 is a signed 64-bit fixed-point number with 32 integer bits and 32
// fractional bits (Q31.32). The raw int64 value is Fix64 * 2^32.
type Fix64 int64

// Shift is the number of fractional bits.
const Shift = 32

// ErrDomain is returned by Sqrt and Ln/Log2 for out-of-domain arguments.
var ErrDomain = errors.New("fixed: domain error")

// Compile-time constant table (design note: "Compile-time constant F64.C*").
const (
	Zero    Fix64 = 0
	One     Fix64 = 1 << Shift
	Two     Fix64 = 2 << Shift
	Half    Fix64 = One / 2
	Quarter Fix64 = One / 4
	Ten     Fix64 = 10 << Shift

	MaxValue Fix64 = 1<<63 - 1
	MinValue Fix64 = -1 << 63

	// Pi and friends, computed to the nearest representable raw value.
	Pi      Fix64 = 13493037705 // pi * 2^32, rounded
	TwoPi   Fix64 = Pi * 2
	HalfPi  Fix64 = Pi / 2
	Deg2Rad Fix64 = 74961321  // (pi/180) * 2^32, rounded
	Rad2Deg Fix64 = 246083499208 // (180/pi) * 2^32, rounded

	Epsilon Fix64 = 4295 // ~1e-6 in Q31.32
)

// Raw returns the underlying fixed-point representation (value * 2^32).
func (f Fix64) Raw() int64 { return int64(f) }

// FromRaw builds a Fix64 directly from its raw representation.
func FromRaw(raw int64) Fix64 { return Fix64(raw) }

// FromInt builds a Fix64 from an integer.
func FromInt(i int64) Fix64 { return Fix64(i << Shift) }

// Int returns the integer part of the Fix64, rounded toward negative
// infinity (an arithmetic shift, so -1.5 gives -2).
func (f Fix64) Int() int64 { return int64(f) >> Shift }

// FromFloat64 builds a Fix64 from a float64. This is a host-boundary
// convenience (tuning files, test fixtures) — it must never be called on a
// value that itself derives from simulation state, since that would
// reintroduce platform-dependent rounding into the deterministic path.
func FromFloat64(v float64) Fix64 {
	return Fix64(int64(v * (1 << Shift)))
}

// Float64 converts back to float64. Host-boundary convenience only (e.g.
// feeding a renderer); never feed the result back into simulation state.
func (f Fix64) Float64() float64 {
	return float64(f) / (1 << Shift)
}

// Add wraps on overflow. Use only where the caller has proven the bounds.
func (f Fix64) Add(g Fix64) Fix64 { return f + g }

// Sub wraps on overflow.
func (f Fix64) Sub(g Fix64) Fix64 { return f - g }

// Neg negates f.
func (f Fix64) Neg() Fix64 { return -f }

// SafeAdd saturates to ±MaxValue/MinValue on overflow, a recovered-locally
// Saturation condition logged at Debug rather than surfaced to the caller.
func (f Fix64) SafeAdd(g Fix64) Fix64 {
	r := f + g
	// overflow iff operands share a sign and result sign differs.
	if (f >= 0) == (g >= 0) && (r >= 0) != (f >= 0) {
		slog.Debug("fixed: saturating add overflow", "a", f, "b", g)
		if f >= 0 {
			return MaxValue
		}
		return MinValue
	}
	return r
}

// SafeSub saturates to ±MaxValue/MinValue on overflow.
func (f Fix64) SafeSub(g Fix64) Fix64 { return f.SafeAdd(-g) }

// Mul multiplies, wrapping on overflow. Use only in hot loops where the
// caller has proven the bounds.
func (f Fix64) Mul(g Fix64) Fix64 {
	r, _ := mul128(int64(f), int64(g))
	return Fix64(r)
}

// SafeMul multiplies, saturating to ±MaxValue on overflow, a
// recovered-locally Saturation condition logged at Debug.
func (f Fix64) SafeMul(g Fix64) Fix64 {
	r, overflow := mul128(int64(f), int64(g))
	if overflow {
		slog.Debug("fixed: saturating mul overflow", "a", f, "b", g)
		if (f >= 0) == (g >= 0) {
			return MaxValue
		}
		return MinValue
	}
	return Fix64(r)
}

// mul128 computes (a*b) >> Shift as a signed 64-bit result, reporting
// whether the true mathematical result does not fit in int64.
func mul128(a, b int64) (result int64, overflow bool) {
	neg := false
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		ua = uint64(-a)
		neg = !neg
	}
	if b < 0 {
		ub = uint64(-b)
		neg = !neg
	}
	hi, lo := bits.Mul64(ua, ub)
	// result magnitude = (hi:lo) >> Shift
	resHi := hi >> Shift
	resLo := hi<<(64-Shift) | lo>>Shift
	if resHi != 0 || resLo > uint64(MaxValue) {
		return 0, true
	}
	r := int64(resLo)
	if neg {
		r = -r
	}
	return r, false
}

// Div divides by calling SafeDiv, so it saturates on overflow and returns
// MaxValue on division by zero, exactly like SafeDiv.
func (f Fix64) Div(g Fix64) Fix64 {
	r, _ := f.SafeDiv(g), false
	return r
}

// SafeDiv divides, saturating on overflow and returning MaxValue when g==0
// (matching ray/denominator handling in collision code: MAX means "miss").
func (f Fix64) SafeDiv(g Fix64) Fix64 {
	if g == 0 {
		return MaxValue
	}
	neg := false
	ua, ub := uint64(f), uint64(g)
	if f < 0 {
		ua = uint64(-f)
		neg = !neg
	}
	if g < 0 {
		ub = uint64(-g)
		neg = !neg
	}
	// numerator = ua << Shift, as a 128-bit value (hi:lo).
	hi := ua >> (64 - Shift)
	lo := ua << Shift
	if hi >= ub {
		// quotient would overflow 64 bits.
		if neg {
			return MinValue
		}
		return MaxValue
	}
	quo, _ := bits.Div64(hi, lo, ub)
	if quo > uint64(MaxValue) {
		if neg {
			return MinValue
		}
		return MaxValue
	}
	r := int64(quo)
	if neg {
		r = -r
	}
	return Fix64(r)
}

// Abs returns the absolute value.
func (f Fix64) Abs() Fix64 {
	if f < 0 {
		if f == MinValue {
			return MaxValue
		}
		return -f
	}
	return f
}

// Sign returns -1, 0 or 1.
func (f Fix64) Sign() int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

// Floor rounds toward negative infinity.
func (f Fix64) Floor() Fix64 { return Fix64(int64(f) &^ (1<<Shift - 1)) }

// Ceil rounds toward positive infinity.
func (f Fix64) Ceil() Fix64 {
	fl := f.Floor()
	if fl == f {
		return fl
	}
	return fl + One
}

// Round rounds to the nearest integer, halves away from zero.
func (f Fix64) Round() Fix64 {
	if f >= 0 {
		return (f + Half).Floor()
	}
	return -((-f + Half).Floor())
}

// Min returns the smaller of f and g.
func Min(f, g Fix64) Fix64 {
	if f < g {
		return f
	}
	return g
}

// Max returns the larger of f and g.
func Max(f, g Fix64) Fix64 {
	if f > g {
		return f
	}
	return g
}

// Clamp returns f restricted to [lo, hi].
func Clamp(f, lo, hi Fix64) Fix64 {
	switch {
	case f < lo:
		return lo
	case f > hi:
		return hi
	}
	return f
}

// Lerp linearly interpolates between a and b by ratio t (not clamped).
func Lerp(a, b, t Fix64) Fix64 { return a + (b - a).Mul(t) }

// AeqZero reports whether f is within Epsilon of zero.
func (f Fix64) AeqZero() bool { return f.Abs() < Epsilon }

// Aeq reports whether f and g are within Epsilon of each other.
func (f Fix64) Aeq(g Fix64) bool { return (f - g).Abs() < Epsilon }
