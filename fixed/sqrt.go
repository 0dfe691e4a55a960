package fixed

import "math/big"

// Sqrt returns the square root of f. Negative f returns (0, ErrDomain).
func (f Fix64) Sqrt() (Fix64, error) {
	if f < 0 {
		return 0, ErrDomain
	}
	if f == 0 {
		return 0, nil
	}
	// result_raw = floor(sqrt(raw * 2^Shift)). big.Int gives an exact,
	// platform-independent integer square root.
	n := new(big.Int).SetInt64(int64(f))
	n.Lsh(n, Shift)
	n.Sqrt(n)
	return Fix64(n.Int64()), nil
}

// SqrtClamped returns Sqrt(f), clamping a negative f to 0 instead of
// returning ErrDomain. Reserved for call sites where f is expected to be
// non-negative by construction (a squared length, 1+trace of a rotation
// matrix) but fixed-point rounding drift can occasionally push it a hair
// below zero; callers that need a hard domain check should call Sqrt
// directly instead.
func (f Fix64) SqrtClamped() Fix64 {
	r, err := f.Sqrt()
	if err != nil {
		return 0
	}
	return r
}
