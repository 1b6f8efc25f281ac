package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(600), ToMinorUnits(decimal.RequireFromString("6.00")))
	assert.Equal(t, int64(600), ToMinorUnits(decimal.RequireFromString("5.999")))
	assert.Equal(t, int64(599), ToMinorUnits(decimal.RequireFromString("5.994")))
	assert.Equal(t, int64(0), ToMinorUnits(decimal.Zero))
	assert.Equal(t, int64(-250), ToMinorUnits(decimal.RequireFromString("-2.50")))
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("6.00").Equal(FromMinorUnits(600)))
	assert.True(t, decimal.RequireFromString("0.01").Equal(FromMinorUnits(1)))
	assert.True(t, decimal.RequireFromString("-2.50").Equal(FromMinorUnits(-250)))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$12.34", FormatUSD(1234))
	assert.Equal(t, "$0.05", FormatUSD(5))
	assert.Equal(t, "$0.00", FormatUSD(0))
	assert.Equal(t, "-$2.50", FormatUSD(-250))
}

func TestWithDisplay(t *testing.T) {
	result := DutyResult{Duty: 500, Tax: 100, Total: 600, GrandTotal: 2100}.WithDisplay()
	assert.Equal(t, "$5.00", result.Display.Duty)
	assert.Equal(t, "$1.00", result.Display.Tax)
	assert.Equal(t, "$6.00", result.Display.Total)
	assert.Equal(t, "$21.00", result.Display.GrandTotal)
}
