// Package types holds the value types shared by every ledger: money,
// fixed-point quantities and calendar dates.
package types

import "github.com/shopspring/decimal"

// Money is an exact decimal amount. Prices carry two decimals; cash
// totals are rounded to two decimals where they are computed.
type Money = decimal.Decimal

// MustMoney parses a literal amount and panics on malformed input.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

func Zero() Money {
	return decimal.Zero
}
