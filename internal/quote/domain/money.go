package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a decimal dollar amount to integer cents,
// rounding half away from zero. Rounding happens only here so stored
// values stay integer-safe.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a decimal dollar amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatUSD renders cents as a display string, e.g. 1234 -> "$12.34".
func FormatUSD(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
