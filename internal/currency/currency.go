package currency

import "math"

type Currency string

const (
	EUR Currency = "EUR"
	PLN Currency = "PLN"
)

// eurPLN is the fixed cross rate used for display pricing. It is
// static configuration: changing it means redeploying, not fetching
// live rates.
const eurPLN = 4.32

var rates = map[Currency]map[Currency]float64{
	EUR: {PLN: eurPLN},
	PLN: {EUR: 1 / eurPLN},
}

func Supported(c Currency) bool {
	return c == EUR || c == PLN
}

// Convert converts an amount in minor units between the supported
// currencies, rounding to the nearest minor unit. Same-currency
// conversion returns the input unchanged, as does any pair outside
// the rate table (callers validate currency membership before money
// moves, so the pass-through only affects display helpers).
func Convert(amount int64, from, to Currency) int64 {
	if from == to {
		return amount
	}
	r, ok := rates[from][to]
	if !ok {
		return amount
	}
	return int64(math.Round(float64(amount) * r))
}
