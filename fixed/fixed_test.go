package fixed

import "testing"

func TestFromRawRoundTrip(t *testing.T) {
	vals := []int64{0, 1, -1, 1 << 40, -(1 << 40), int64(MaxValue), int64(MinValue)}
	for _, raw := range vals {
		x := FromRaw(raw)
		if x.Raw() != raw {
			t.Errorf("FromRaw(%d).Raw() = %d, want %d", raw, x.Raw(), raw)
		}
	}
}

func TestLnExpRoundTrip(t *testing.T) {
	cases := []float64{0.5, 1, 2, 10, 100}
	for _, c := range cases {
		x := FromFloat64(c)
		l, err := x.Ln()
		if err != nil {
			t.Fatalf("Ln(%v): %v", c, err)
		}
		// exp(ln(x)) == x within LUT/series resolution.
		got := expOf(l).Float64()
		if diff := abs(got - c); diff > c*0.01+0.02 {
			t.Errorf("exp(ln(%v)) = %v, diff %v too large", c, got, diff)
		}
	}
}

// expOf computes e^x using Exp2 (e^x = 2^(x/ln2)).
func expOf(x Fix64) Fix64 {
	return x.SafeDiv(Ln2).Exp2()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSaturatingAdd(t *testing.T) {
	if got := MaxValue.SafeAdd(One); got != MaxValue {
		t.Errorf("MaxValue+1 = %v, want saturated MaxValue", got)
	}
	if got := MinValue.SafeAdd(-One); got != MinValue {
		t.Errorf("MinValue-1 = %v, want saturated MinValue", got)
	}
}

func TestDivByZeroYieldsMax(t *testing.T) {
	if got := One.SafeDiv(0); got != MaxValue {
		t.Errorf("1/0 = %v, want MaxValue", got)
	}
}

func TestSqrtDomainError(t *testing.T) {
	if _, err := FromInt(-1).Sqrt(); err != ErrDomain {
		t.Errorf("Sqrt(-1) err = %v, want ErrDomain", err)
	}
}

func TestSqrtKnownValues(t *testing.T) {
	cases := map[float64]float64{4: 2, 9: 3, 2: 1.4142135}
	for in, want := range cases {
		got, err := FromFloat64(in).Sqrt()
		if err != nil {
			t.Fatal(err)
		}
		if diff := abs(got.Float64() - want); diff > 0.01 {
			t.Errorf("Sqrt(%v) = %v, want ~%v", in, got.Float64(), want)
		}
	}
}

func TestSqrtClamped(t *testing.T) {
	if got := FromInt(9).SqrtClamped(); got.Sub(FromInt(3)).Abs() > FromFloat64(0.01) {
		t.Errorf("SqrtClamped(9) = %v, want ~3", got.Float64())
	}
	if got := FromInt(-1).SqrtClamped(); got != 0 {
		t.Errorf("SqrtClamped(-1) = %v, want 0 (clamped, not panicking)", got.Float64())
	}
}

func TestTrigIdentity(t *testing.T) {
	cases := []float64{0, 0.5, 1, 1.5707963, 3.14159, -1.0}
	for _, c := range cases {
		x := FromFloat64(c)
		s, cs := x.Sin(), x.Cos()
		sumSq := s.Mul(s).SafeAdd(cs.Mul(cs))
		if diff := abs(sumSq.Float64() - 1.0); diff > 0.01 {
			t.Errorf("sin^2+cos^2 at %v = %v, want ~1", c, sumSq.Float64())
		}
	}
}

func TestAtan2Quadrants(t *testing.T) {
	cases := []struct{ y, x, want float64 }{
		{0, 1, 0},
		{1, 0, 1.5707963},
		{0, -1, 3.14159},
		{-1, 0, -1.5707963},
	}
	for _, c := range cases {
		got := Atan2(FromFloat64(c.y), FromFloat64(c.x))
		if diff := abs(got.Float64() - c.want); diff > 0.01 {
			t.Errorf("Atan2(%v,%v) = %v, want ~%v", c.y, c.x, got.Float64(), c.want)
		}
	}
}
