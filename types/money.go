// Package types provides common types used across the token ledger engine.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale constants for the decimal arithmetic core. Intermediate arithmetic is
// carried at full precision; these scales apply only at output boundaries.
const (
	// CurrencyScale is the output scale for monetary amounts.
	CurrencyScale int32 = 2

	// RatioScale is the output scale for ratios such as loan-to-value.
	RatioScale int32 = 4

	// divisionScale bounds non-terminating division inside Money. Callers
	// still round to CurrencyScale at the output boundary.
	divisionScale int32 = 8
)

// RoundHalfUp rounds d to the given scale using the round-half-up rule:
// floor(d * 10^scale + 0.5) / 10^scale. This is the single rounding mode used
// throughout the engine; exactly-half values round toward positive infinity.
func RoundHalfUp(d decimal.Decimal, scale int32) decimal.Decimal {
	half := decimal.New(5, -1)
	return d.Shift(scale).Add(half).Floor().Shift(-scale)
}

// Money represents a monetary value as an exact decimal.
// No floating point is used anywhere in its arithmetic.
//
// Examples:
//   - USD("49.00")  = $49.00
//   - EUR("199.00") = €199.00
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// Common currency constructors. The amount string must be a valid decimal
// literal; these panic on a malformed literal (programming error).

// USD creates a Money value in US Dollars.
func USD(amount string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: "usd"}
}

// EUR creates a Money value in Euros.
func EUR(amount string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: "eur"}
}

// GBP creates a Money value in British Pounds.
func GBP(amount string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: "gbp"}
}

// NewMoney creates a Money value from a decimal amount and currency code.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// ParseMoney parses a decimal amount string into a Money value.
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: strings.ToLower(currency)}, nil
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToLower(currency)}
}

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(qty)), Currency: m.Currency}
}

// Divide divides the Money by a divisor. Non-terminating quotients are
// carried at divisionScale; round to the currency scale at the boundary.
func (m Money) Divide(divisor int64) Money {
	if divisor == 0 {
		panic("money: division by zero")
	}
	return Money{Amount: m.Amount.DivRound(decimal.NewFromInt(divisor), divisionScale), Currency: m.Currency}
}

// DiscountPercent returns the Money reduced by pct percent, rounded half-up
// to the currency scale. Panics if pct is outside [0, 100].
func (m Money) DiscountPercent(pct int64) Money {
	if pct < 0 || pct > 100 {
		panic(fmt.Sprintf("money: discount percent out of range: %d", pct))
	}
	factor := decimal.NewFromInt(100 - pct).Shift(-2)
	return Money{
		Amount:   RoundHalfUp(m.Amount.Mul(factor), currencyDecimals(m.Currency)),
		Currency: m.Currency,
	}
}

// Round returns the Money rounded half-up to its currency scale.
func (m Money) Round() Money {
	return Money{Amount: RoundHalfUp(m.Amount, currencyDecimals(m.Currency)), Currency: m.Currency}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.LessThan(other.Amount)
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.GreaterThan(other.Amount)
}

// Min returns the smaller of two Money values. Panics if currencies don't match.
func (m Money) Min(other Money) Money {
	m.assertSameCurrency(other)
	if m.Amount.LessThan(other.Amount) {
		return m
	}
	return other
}

// Max returns the larger of two Money values. Panics if currencies don't match.
func (m Money) Max(other Money) Money {
	m.assertSameCurrency(other)
	if m.Amount.GreaterThan(other.Amount) {
		return m
	}
	return other
}

// Formatting methods

// FormatMajor returns the amount string at the currency scale without a
// currency symbol: "49.00" for USD("49.00").
func (m Money) FormatMajor() string {
	scale := currencyDecimals(m.Currency)
	return RoundHalfUp(m.Amount, scale).StringFixed(scale)
}

// String returns a human-readable string with currency symbol.
// Examples: "$49.00", "€199.00", "£99.00"
func (m Money) String() string {
	symbol := currencySymbol(m.Currency)
	return symbol + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler. The amount is encoded as a string so
// no float representation ever appears on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount.String(),
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Helper functions

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int32 {
	// Currencies with 0 decimal places
	zeroDecimal := map[string]bool{
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"vnd": true, // Vietnamese Dong
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	// Most currencies have 2 decimal places
	return CurrencyScale
}

// Sum calculates the sum of multiple Money values. All must have the same currency.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero("usd")
	}

	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}
