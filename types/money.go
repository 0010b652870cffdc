// Package types provides common types used across paywall.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money represents an amount of the payment token in its smallest unit.
// Arithmetic is integer-only.
//
// Examples:
//   - New(100, "usdc") = 100 base units of USDC
//   - New(5, "wei")    = 5 wei
type Money struct {
	Amount int64  `json:"amount"` // Smallest unit of the token
	Denom  string `json:"denom"`  // Lowercase token denomination: "usdc", "wei"
}

// New creates a Money value in the given denomination.
func New(amount int64, denom string) Money {
	return Money{Amount: amount, Denom: strings.ToLower(denom)}
}

// Zero returns a zero Money value in the specified denomination.
func Zero(denom string) Money { return New(0, denom) }

// Arithmetic operations

// Add adds two Money values. Panics if denominations don't match.
func (m Money) Add(other Money) Money {
	m.assertSameDenom(other)
	return Money{Amount: m.Amount + other.Amount, Denom: m.Denom}
}

// Subtract subtracts another Money value. Panics if denominations don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameDenom(other)
	return Money{Amount: m.Amount - other.Amount, Denom: m.Denom}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Denom: m.Denom}
}

// Divide divides the Money by a divisor. Uses integer division.
func (m Money) Divide(divisor int64) Money {
	if divisor == 0 {
		panic("money: division by zero")
	}
	return Money{Amount: m.Amount / divisor, Denom: m.Denom}
}

// Percent returns pct percent of m, truncated toward zero. The amount is
// split into hundreds and remainder so the result never overflows int64.
// Panics if pct is outside [0, 100].
func (m Money) Percent(pct int64) Money {
	if pct < 0 || pct > 100 {
		panic(fmt.Sprintf("money: percentage out of range: %d", pct))
	}
	return Money{Amount: m.Amount/100*pct + m.Amount%100*pct/100, Denom: m.Denom}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and denomination).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Denom == other.Denom
}

// LessThan returns true if this Money is less than other. Panics if denominations don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameDenom(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if denominations don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameDenom(other)
	return m.Amount > other.Amount
}

// String returns a human-readable string such as "100 usdc".
func (m Money) String() string {
	if m.Denom == "" {
		return strconv.FormatInt(m.Amount, 10)
	}
	return strconv.FormatInt(m.Amount, 10) + " " + m.Denom
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount  int64  `json:"amount"`
		Denom   string `json:"denom"`
		Display string `json:"display"`
	}{
		Amount:  m.Amount,
		Denom:   m.Denom,
		Display: m.String(),
	})
}

// assertSameDenom panics if denominations don't match.
func (m Money) assertSameDenom(other Money) {
	if m.Denom != other.Denom {
		panic(fmt.Sprintf("money: denomination mismatch: %s != %s", m.Denom, other.Denom))
	}
}

// Sum calculates the sum of multiple Money values. All must share a denomination.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Money{}
	}

	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}
