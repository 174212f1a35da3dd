package risk

import "github.com/shopspring/decimal"

var (
	feeStandard = decimal.NewFromInt(25)
	feeLarge    = decimal.NewFromInt(50)
)

func Fee(amount decimal.Decimal) decimal.Decimal {
	if amount.GreaterThanOrEqual(DelayedThreshold) {
		return feeLarge
	}
	return feeStandard
}

func NetAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(Fee(amount))
}

// Payable reports whether anything is left to transfer once the fee is taken.
func Payable(amount decimal.Decimal) bool {
	return NetAmount(amount).IsPositive()
}
