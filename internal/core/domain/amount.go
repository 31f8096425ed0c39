package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// baseUnitsPerToken is the number of base units composing one display token.
const baseUnitsPerToken = 1_000_000

// FormatBalance renders a base-unit amount as a display-unit decimal string.
func FormatBalance(balance uint64) string {
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0)
	return amount.DivRound(decimal.NewFromInt(baseUnitsPerToken), 6).String()
}
