package discount

import (
	"testing"
	"time"

	"github.com/lienworks/tokenledger/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"save10", "SAVE10"},
		{"  Save10  ", "SAVE10"},
		{"SAVE10", "SAVE10"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.out {
			t.Errorf("Normalize(%q): got %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestIsActive(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		code   Code
		active bool
	}{
		{"No window", Code{Code: "A", Percentage: 10}, true},
		{"Inside window", Code{Code: "A", Percentage: 10, ValidFrom: &past, ValidUntil: &future}, true},
		{"Not started", Code{Code: "A", Percentage: 10, ValidFrom: &future}, false},
		{"Expired", Code{Code: "A", Percentage: 10, ValidUntil: &past}, false},
		{"Capped out", Code{Code: "A", Percentage: 10, MaxRedemptions: 5, TimesRedeemed: 5}, false},
		{"Under cap", Code{Code: "A", Percentage: 10, MaxRedemptions: 5, TimesRedeemed: 4}, true},
		{"Uncapped", Code{Code: "A", Percentage: 10, TimesRedeemed: 1000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.IsActive(now); got != tt.active {
				t.Errorf("IsActive: got %v, want %v", got, tt.active)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		pct      int64
		price    types.Money
		expected types.Money
	}{
		{"Ten percent", 10, types.USD("49.00"), types.USD("44.10")},
		{"Full", 100, types.USD("49.00"), types.USD("0.00")},
		{"Half up", 50, types.USD("0.99"), types.USD("0.50")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Code{Code: "X", Percentage: tt.pct}
			if got := c.Apply(tt.price); !got.Equal(tt.expected) {
				t.Errorf("Apply: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name  string
		code  Code
		valid bool
	}{
		{"Valid", Code{Code: "SAVE10", Percentage: 10}, true},
		{"Empty code", Code{Percentage: 10}, false},
		{"Zero percent", Code{Code: "X", Percentage: 0}, false},
		{"Over hundred", Code{Code: "X", Percentage: 101}, false},
		{"Inverted window", Code{Code: "X", Percentage: 10, ValidFrom: &now, ValidUntil: &earlier}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.code.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected error")
			}
		})
	}
}
