package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   string
		currency string
		display  string
	}{
		{"USD", USD("49.00"), "49", "usd", "$49.00"},
		{"EUR", EUR("199.00"), "199", "eur", "€199.00"},
		{"GBP", GBP("99.00"), "99", "gbp", "£99.00"},
		{"Zero USD", Zero("USD"), "0", "usd", "$0.00"},
		{"Zero EUR", Zero("EUR"), "0", "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.amount)
			if !tt.money.Amount.Equal(want) {
				t.Errorf("Amount: got %s, want %s", tt.money.Amount, want)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in       string
		scale    int32
		expected string
	}{
		{"1.005", 2, "1.01"},
		{"1.004", 2, "1"},
		{"1.0049999", 2, "1"},
		{"2.675", 2, "2.68"},
		{"0.125", 2, "0.13"},
		{"0.5", 0, "1"},
		{"1.5", 0, "2"},
		{"2.5", 0, "3"},
		// Exactly-half negatives round toward positive infinity.
		{"-0.5", 0, "0"},
		{"-1.5", 0, "-1"},
		{"-1.005", 2, "-1"},
		{"-1.006", 2, "-1.01"},
		{"0.08335", 4, "0.0834"},
		{"0", 2, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundHalfUp(decimal.RequireFromString(tt.in), tt.scale)
			want := decimal.RequireFromString(tt.expected)
			if !got.Equal(want) {
				t.Errorf("RoundHalfUp(%s, %d): got %s, want %s", tt.in, tt.scale, got, want)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD("1.00").Add(USD("2.00")) }, USD("3.00")},
		{"Subtract", func() Money { return USD("5.00").Subtract(USD("2.00")) }, USD("3.00")},
		{"Multiply", func() Money { return USD("1.00").Multiply(3) }, USD("3.00")},
		{"Divide", func() Money { return USD("9.00").Divide(3) }, USD("3.00")},
		{"Divide non-terminating", func() Money { return USD("10.00").Divide(3) }, USD("3.33333333")},
		{"Negate", func() Money { return USD("1.00").Negate() }, USD("-1.00")},
		{"Abs positive", func() Money { return USD("1.00").Abs() }, USD("1.00")},
		{"Abs negative", func() Money { return USD("-1.00").Abs() }, USD("1.00")},
		{"Complex", func() Money {
			return USD("10.00").Add(USD("5.00")).Multiply(2).Subtract(USD("10.00"))
		}, USD("20.00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		price    Money
		pct      int64
		expected Money
	}{
		{"No discount", USD("49.00"), 0, USD("49.00")},
		{"Ten percent", USD("49.00"), 10, USD("44.10")},
		{"Full discount", USD("49.00"), 100, USD("0.00")},
		{"Rounds half up", USD("0.99"), 50, USD("0.50")}, // 0.495 -> 0.50
		{"Odd price", USD("33.33"), 15, USD("28.33")},    // 28.3305 -> 28.33
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.price.DiscountPercent(tt.pct)
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyDiscountPercentOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for out-of-range percent")
		}
	}()

	_ = USD("49.00").DiscountPercent(101)
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD("1.00").Add(EUR("1.00"))
}

func TestMoneyDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	// This should panic
	_ = USD("1.00").Divide(0)
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USD("1.00"), USD("1.00"), false, false, true},
		{"Less", USD("0.50"), USD("1.00"), true, false, false},
		{"Greater", USD("2.00"), USD("1.00"), false, true, false},
		{"Zero equal", USD("0"), Zero("usd"), false, false, true},
		{"Negative less", USD("-1.00"), USD("1.00"), true, false, false},
		{"Trailing zeros equal", USD("1.0"), USD("1.00"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", USD("0.50"), USD("1.00"), USD("0.50"), USD("1.00")},
		{"Second smaller", USD("1.00"), USD("0.50"), USD("0.50"), USD("1.00")},
		{"Equal", USD("1.00"), USD("1.00"), USD("1.00"), USD("1.00")},
		{"Negative", USD("-0.50"), USD("0.50"), USD("-0.50"), USD("0.50")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", USD("0"), true, false, false},
		{"Positive", USD("1.00"), false, true, false},
		{"Negative", USD("-1.00"), false, false, true},
		{"Large positive", USD("9999999.99"), false, true, false},
		{"Large negative", USD("-9999999.99"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{USD("49.00"), "49.00"},
		{USD("1"), "1.00"},
		{USD("0.01"), "0.01"},
		{USD("0"), "0.00"},
		{USD("-49.00"), "-49.00"},
		{USD("-0.01"), "-0.01"},
		{EUR("99.99"), "99.99"},
		{USD("1.005"), "1.01"},  // half rounds up
		{USD("1.0049"), "1.00"}, // below half rounds down
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := USD("49.00")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	// Check JSON structure: amount encoded as a string, never a float.
	expected := `{"amount":"49","currency":"usd","display":"$49.00"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	// Unmarshal and verify
	var result Money
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !result.Equal(m) {
		t.Errorf("Unmarshaled data incorrect: %+v", result)
	}
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("12.34", "USD")
	if err != nil {
		t.Fatalf("ParseMoney error: %v", err)
	}
	if !m.Equal(USD("12.34")) {
		t.Errorf("Got %v, want %v", m, USD("12.34"))
	}

	if _, err := ParseMoney("not-a-number", "USD"); err == nil {
		t.Error("Expected error for malformed amount")
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Zero("usd")},
		{"Single", []Money{USD("1.00")}, USD("1.00")},
		{"Multiple", []Money{USD("1.00"), USD("2.00"), USD("3.00")}, USD("6.00")},
		{"With negatives", []Money{USD("1.00"), USD("-0.50"), USD("2.00")}, USD("2.50")},
		{"All zero", []Money{USD("0"), USD("0"), USD("0")}, USD("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum(tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		symbol   string
	}{
		{"usd", "$"},
		{"eur", "€"},
		{"gbp", "£"},
		{"jpy", "¥"},
		{"unknown", "UNKNOWN "},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got := currencySymbol(tt.currency)
			if got != tt.symbol {
				t.Errorf("Symbol for %s: got %s, want %s", tt.currency, got, tt.symbol)
			}
		})
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := USD("1.00")
	m2 := USD("2.00")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m1.Add(m2)
	}
}

func BenchmarkRoundHalfUp(b *testing.B) {
	d := decimal.RequireFromString("1066.186551")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = RoundHalfUp(d, 2)
	}
}
