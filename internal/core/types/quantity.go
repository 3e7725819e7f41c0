package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity counts stock in thousandths of a unit, so weight goods are
// exact to the gram and counted goods are multiples of QuantityScale.
// Columns store the scaled integer.
type Quantity int64

const (
	QuantityScale int64 = 1_000
	// QuantityStep is 0.001, the smallest quantity.
	QuantityStep Quantity = 1
)

func NewQuantityFromUnits(units int64) Quantity { return Quantity(units * QuantityScale) }

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

// NewQuantityFromDecimal rounds d half away from zero to three decimals.
func NewQuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Shift(3).Round(0).IntPart())
}

// Inputs outside these bounds cannot fit a Quantity; they are rejected
// before any scaling so a short exponent cannot expand into a huge number.
const (
	maxQuantityLen = 40
	maxQuantityExp = 18
)

// ParseQuantity accepts decimal notation with at most three significant
// fractional digits; "1.2500" is fine, "1.0005" is not.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxQuantityLen {
		return 0, fmt.Errorf("quantity %q... out of range", s[:maxQuantityLen])
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	if exp := d.Exponent(); exp > maxQuantityExp || exp < -maxQuantityExp {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	scaled := d.Shift(3)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("quantity %q has more than 3 decimal places", s)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	return Quantity(scaled.IntPart()), nil
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal is the exact value of q.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -3) }

func (q Quantity) IsWhole() bool { return int64(q)%QuantityScale == 0 }

// Units truncates q to whole units.
func (q Quantity) Units() int64 { return int64(q) / QuantityScale }

// Amount is q times a unit price, rounded to cents.
func (q Quantity) Amount(price Money) Money {
	return q.Decimal().Mul(price).Round(2)
}

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String always prints three decimals: "1.200", "-0.050".
func (q Quantity) String() string {
	return q.Decimal().StringFixed(3)
}

// MarshalJSON writes a bare JSON number without trailing zeros, so counted
// goods render as whole units: 4000 is 4, 1200 is 1.2.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.Decimal().String()), nil
}

// UnmarshalJSON takes a JSON number or a numeric string; null is zero.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*q = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		s = unq
	}
	parsed, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
