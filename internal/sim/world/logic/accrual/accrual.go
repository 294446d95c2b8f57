package accrual

import (
	"math"
	"math/bits"
)

const HourMs int64 = 3_600_000

// Accrue returns the profit earned between fromMs and toMs at rate per unitMs,
// rounded half up. A backward interval earns nothing. unitMs <= 0 means one hour.
func Accrue(fromMs, toMs int64, rate int, unitMs int64) int {
	if toMs <= fromMs || rate <= 0 {
		return 0
	}
	if unitMs <= 0 {
		unitMs = HourMs
	}
	// Wide multiply keeps the result exact for any elapsed*rate product.
	elapsed := uint64(toMs - fromMs)
	hi, lo := bits.Mul64(elapsed, uint64(rate))
	var carry uint64
	lo, carry = bits.Add64(lo, uint64(unitMs)/2, 0)
	hi += carry
	if hi >= uint64(unitMs) {
		return math.MaxInt
	}
	q, _ := bits.Div64(hi, lo, uint64(unitMs))
	if q > math.MaxInt {
		return math.MaxInt
	}
	return int(q)
}
