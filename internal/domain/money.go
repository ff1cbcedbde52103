package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary value in the switch's single settlement currency,
// stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money int64

// CentMicros is one hundredth of a unit in micros. Wire amounts and
// partner ledgers carry two fractional digits, so every amount that
// settles is a whole number of cents.
const CentMicros Money = 10_000

// WholeCents reports whether the amount has no fraction finer than two
// decimal places.
func (m Money) WholeCents() bool {
	return m%CentMicros == 0
}

// MoneyFromDecimal converts a decimal amount to micros, truncating beyond
// the sixth fractional digit.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(decimal.NewFromInt(1_000_000)).IntPart())
}

// ParseMoney parses a decimal string (e.g. "100.50") into micros.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

// Micros returns the raw micro amount.
func (m Money) Micros() int64 {
	return int64(m)
}

// ToDecimal converts micros back to a decimal amount.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(1_000_000))
}

// String renders the amount with two fractional digits, the granularity
// the forwarding protocol and the journal present.
func (m Money) String() string {
	return m.ToDecimal().StringFixed(2)
}
