package fixed

// Ln2 is ln(2) in Q31.32, used to convert between Log2 and Ln.
const Ln2 Fix64 = 2977044472

// Log2 returns the base-2 logarithm of f. f must be positive.
//
// Algorithm: normalize f = m * 2^e with m in [1,2), then extract the
// fractional log2(m) bit by bit via repeated squaring — the textbook
// fixed-point binary-logarithm method (every bit of the CORDIC-free
// result costs one squaring and a compare-and-halve).
func (f Fix64) Log2() (Fix64, error) {
	if f <= 0 {
		return 0, ErrDomain
	}
	// Find e such that m = f / 2^e lies in [One, Two).
	e := 0
	m := f
	for m >= Two {
		m = m.halveRaw()
		e++
	}
	for m < One {
		m = m.doubleRaw()
		e--
	}
	frac := Fix64(0)
	bit := Fix64(1 << (Shift - 1)) // 0.5 in Q31.32 representation of the fraction being built
	for i := 0; i < Shift; i++ {
		m, _ = mulQ(m, m)
		if m >= Two {
			m = m.halveRaw()
			frac |= bit
		}
		bit >>= 1
	}
	return FromInt(int64(e)) + frac, nil
}

// halveRaw divides the raw representation by 2 (exact, no rounding loss
// beyond the lost bit, used only by normalization where m stays a power
// of two multiple).
func (f Fix64) halveRaw() Fix64 { return Fix64(int64(f) >> 1) }
func (f Fix64) doubleRaw() Fix64 { return Fix64(int64(f) << 1) }

// mulQ multiplies two Q31.32 values already known to be in [1,4), where the
// product [1,16) still fits comfortably in int64; a thin wrapper over Mul.
func mulQ(a, b Fix64) (Fix64, bool) {
	r, overflow := mul128(int64(a), int64(b))
	return Fix64(r), overflow
}

// Ln returns the natural logarithm of f. f must be positive.
func (f Fix64) Ln() (Fix64, error) {
	l2, err := f.Log2()
	if err != nil {
		return 0, err
	}
	return l2.Mul(Ln2), nil
}

// Exp2 returns 2^f for any f (positive, negative, or zero).
//
// Algorithm: split f into integer part n and fraction part frac in [0,1),
// compute 2^frac by iteratively halving the exponent (square-root chain
// c_i = sqrt(c_{i-1}), c_0 = 2) and multiplying in c_i whenever bit i of
// frac's binary expansion is set — the inverse of Log2's bit extraction.
func (f Fix64) Exp2() Fix64 {
	n := f.Floor().Int()
	frac := f - f.Floor()

	result := One
	c := Two
	bit := Fix64(1 << (Shift - 1))
	for i := 0; i < 24 && frac > 0; i++ { // 24 bits is ample for Q31.32 display precision
		var err error
		c, err = c.Sqrt()
		if err != nil {
			break
		}
		if frac&bit != 0 {
			result = result.SafeMul(c)
		}
		bit >>= 1
	}
	// apply 2^n via raw shift, saturating on overflow.
	if n >= 0 {
		if n >= 63 {
			return MaxValue
		}
		shifted := int64(result) << uint(n)
		if shifted>>uint(n) != int64(result) {
			return MaxValue
		}
		return Fix64(shifted)
	}
	if -n >= 63 {
		return 0
	}
	return Fix64(int64(result) >> uint(-n))
}

// Pow returns f^y. A negative f always yields ErrDomain, whatever y is.
// For f == 0: 0^0 == 1, 0^y == 0 for y>0, and 0^y == MaxValue for y<0.
func (f Fix64) Pow(y Fix64) (Fix64, error) {
	if f == 0 {
		if y == 0 {
			return One, nil
		}
		if y > 0 {
			return 0, nil
		}
		return MaxValue, nil // 0^negative: treat as "miss" per saturation policy
	}
	if f < 0 {
		return 0, ErrDomain
	}
	l2, err := f.Log2()
	if err != nil {
		return 0, err
	}
	return y.SafeMul(l2).Exp2(), nil
}
