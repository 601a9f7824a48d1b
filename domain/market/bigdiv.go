package market

import (
	"math"
	"math/big"
	"strconv"
)

// mantissaBits is the widest integer a float64 holds exactly.
const mantissaBits = 53

// BigRatioToFloat converts the ratio num/den to a float64 without
// overflowing on operands wider than 64 bits. The operands are not
// modified. A zero denominator is a contract violation and panics.
//
// The reduction ladder: divide directly when both operands fit the
// float64 mantissa; otherwise reduce by their gcd and retry; otherwise
// right-shift both into the mantissa and fold the discarded bit counts
// back in as a power-of-two bias; otherwise divide their decimal
// renderings.
func BigRatioToFloat(num, den *big.Int) float64 {
	if den.Sign() == 0 {
		panic("market: zero denominator")
	}
	negative := (num.Sign() < 0) != (den.Sign() < 0)
	n := new(big.Int).Abs(num)
	d := new(big.Int).Abs(den)

	q, ok := mantissaQuotient(n, d)
	if !ok {
		g := new(big.Int).GCD(nil, nil, n, d)
		n.Quo(n, g)
		d.Quo(d, g)
		q, ok = mantissaQuotient(n, d)
	}
	if !ok {
		nShift := excessBits(n)
		dShift := excessBits(d)
		n.Rsh(n, nShift)
		d.Rsh(d, dShift)
		bias := math.Ldexp(1, int(nShift)-int(dShift))
		if q, ok = mantissaQuotient(n, d); ok {
			q *= bias
		} else {
			q = bias * stringQuotient(n, d)
		}
	}
	if negative {
		return -q
	}
	return q
}

func mantissaQuotient(n, d *big.Int) (float64, bool) {
	if n.BitLen() > mantissaBits || d.BitLen() > mantissaBits {
		return 0, false
	}
	return float64(n.Uint64()) / float64(d.Uint64()), true
}

func excessBits(x *big.Int) uint {
	if bl := x.BitLen(); bl > mantissaBits {
		return uint(bl - mantissaBits)
	}
	return 0
}

// stringQuotient is the degenerate fallback: both operands rendered in
// decimal and parsed back. Reached only if the shift step could not
// fit the mantissa.
func stringQuotient(n, d *big.Int) float64 {
	nf, _ := strconv.ParseFloat(n.String(), 64)
	df, _ := strconv.ParseFloat(d.String(), 64)
	return nf / df
}
