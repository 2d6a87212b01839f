// Package money holds currency amounts as integer minor units (paise for INR)
// so fee and payout arithmetic never goes through floating point.
package money

import (
	"fmt"
	"math"
)

// Minor is an amount expressed in the currency's minor unit.
type Minor int64

// MinorPerMajor is the number of minor units in one major unit.
const MinorPerMajor = 100

// FromMajor converts a major-unit amount as received from JSON (e.g. 1000.5 rupees)
// into minor units, rounding half away from zero to the nearest minor unit.
func FromMajor(v float64) Minor {
	return Minor(math.Round(v * MinorPerMajor))
}

// Major returns the amount in major units for presentation.
func (m Minor) Major() float64 {
	return float64(m) / MinorPerMajor
}

// Percent returns pct percent of m, rounded half up to the nearest minor unit.
// pct must be within [0, 100].
func (m Minor) Percent(pct int64) Minor {
	if m < 0 {
		return -(-m).Percent(pct)
	}
	return Minor((int64(m)*pct + 50) / 100)
}

// String formats the amount in major units with two decimals.
func (m Minor) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/MinorPerMajor, v%MinorPerMajor)
}
