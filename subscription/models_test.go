package subscription

import (
	"testing"

	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/types"
)

func TestTierForAmount(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name   string
		amount types.Money
		tier   string
		found  bool
	}{
		{"Exact starter", types.USD("29.00"), "starter", true},
		{"Between starter and growth", types.USD("78.99"), "starter", true},
		{"Exact growth", types.USD("79.00"), "growth", true},
		{"Above scale", types.USD("500.00"), "scale", true},
		{"Below every tier", types.USD("28.99"), "", false},
		{"Zero", types.Zero("usd"), "", false},
		{"Currency mismatch", types.EUR("79.00"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, found := table.TierForAmount(tt.amount)
			if found != tt.found {
				t.Fatalf("found: got %v, want %v", found, tt.found)
			}
			if found && tier.Name != tt.tier {
				t.Errorf("tier: got %s, want %s", tier.Name, tt.tier)
			}
		})
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		valid bool
	}{
		{"Default table", DefaultTable(), true},
		{"Empty currency", Table{Tiers: []Tier{{Name: "a", MinAmount: types.USD("1.00")}}}, false},
		{"Unnamed tier", Table{Currency: "usd", Tiers: []Tier{{MinAmount: types.USD("1.00")}}}, false},
		{"Duplicate name", Table{Currency: "usd", Tiers: []Tier{
			{Name: "a", MinAmount: types.USD("1.00")},
			{Name: "a", MinAmount: types.USD("2.00")},
		}}, false},
		{"Currency mismatch", Table{Currency: "usd", Tiers: []Tier{
			{Name: "a", MinAmount: types.EUR("1.00")},
		}}, false},
		{"Negative minimum", Table{Currency: "usd", Tiers: []Tier{
			{Name: "a", MinAmount: types.USD("-1.00")},
		}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSorted(t *testing.T) {
	table := Table{
		Currency: "usd",
		Tiers: []Tier{
			{Name: "big", MinAmount: types.USD("100.00")},
			{Name: "small", MinAmount: types.USD("1.00")},
			{Name: "mid", MinAmount: types.USD("50.00")},
		},
	}

	sorted := table.Sorted()
	want := []string{"small", "mid", "big"}
	for i, tier := range sorted {
		if tier.Name != want[i] {
			t.Errorf("position %d: got %s, want %s", i, tier.Name, want[i])
		}
	}
	// Original order untouched.
	if table.Tiers[0].Name != "big" {
		t.Error("Sorted mutated the table")
	}
}

func TestDefaultTableGrants(t *testing.T) {
	table := DefaultTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}

	tier, found := table.TierForAmount(types.USD("199.00"))
	if !found || tier.Name != "scale" {
		t.Fatalf("scale tier not found: %v %v", tier, found)
	}
	if tier.Grants[journal.KindRegular] != 1000 || tier.Grants[journal.KindMail] != 150 {
		t.Errorf("scale grants: %v", tier.Grants)
	}
}
