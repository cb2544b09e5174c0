package billing

import "math"

// roundEpsilon absorbs the few ULPs a decimal-looking amount loses in
// binary: 2.675 is stored just under the tie and must still round to 2.68
// like the printed decimal would.
const roundEpsilon = 1e-9

// RoundCurrency rounds to the cent, half up, ties away from zero. Every
// monetary aggregation boundary of the invoice uses this.
func RoundCurrency(v float64) float64 {
	scaled := v * 100
	if scaled < 0 {
		return -math.Floor(-scaled+0.5+roundEpsilon) / 100
	}
	return math.Floor(scaled+0.5+roundEpsilon) / 100
}

// roundSum rounds each value to the cent and sums the results. Used for
// the single-segment energy term, where each per-period subtotal is
// settled to the cent before totaling.
func roundSum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += RoundCurrency(v)
	}
	return total
}
