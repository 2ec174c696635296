package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// The contract stores amounts as integers: the base asset with 18
// fractional digits (wei) and the quote asset with 6. Conversions in
// either direction must be exact; an amount that cannot be represented
// without loss is an error, never a silent rounding.
const (
	BaseDecimals  = 18
	QuoteDecimals = 6
)

// ToBaseUnits converts a base-asset amount to its integer contract
// representation.
func ToBaseUnits(d decimal.Decimal) (*big.Int, error) {
	return toUnits(d, BaseDecimals)
}

// ToQuoteUnits converts a quote-asset amount to its integer contract
// representation.
func ToQuoteUnits(d decimal.Decimal) (*big.Int, error) {
	return toUnits(d, QuoteDecimals)
}

// FromBaseUnits converts an integer contract amount to a base-asset
// decimal.
func FromBaseUnits(x *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(x, -BaseDecimals)
}

// FromQuoteUnits converts an integer contract amount to a quote-asset
// decimal.
func FromQuoteUnits(x *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(x, -QuoteDecimals)
}

func toUnits(d decimal.Decimal, digits int32) (*big.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", d)
	}
	shifted := d.Shift(digits)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", d, digits)
	}
	return shifted.BigInt(), nil
}
