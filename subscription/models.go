// Package subscription maps recurring invoice amounts to monthly token
// grants via a banded tier table.
package subscription

import (
	"sort"

	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/types"
)

// Tier is one price band. An invoice whose paid amount is at least
// MinAmount (and below the next tier's MinAmount) lands in this tier and
// earns its grants for the billing period.
type Tier struct {
	Name      string                      `json:"name"`
	MinAmount types.Money                 `json:"min_amount"`
	Grants    map[journal.TokenKind]int64 `json:"grants"`
}

// Table is an ordered set of tiers for a single currency.
type Table struct {
	Currency string `json:"currency"`
	Tiers    []Tier `json:"tiers"`
}

// TierForAmount returns the highest tier whose MinAmount does not exceed
// the paid amount. The boolean is false when the amount is below every
// tier or the currency does not match.
func (t Table) TierForAmount(paid types.Money) (Tier, bool) {
	if paid.Currency != t.Currency {
		return Tier{}, false
	}
	var (
		best  Tier
		found bool
	)
	for _, tier := range t.Tiers {
		if paid.Amount.Cmp(tier.MinAmount.Amount) >= 0 {
			if !found || tier.MinAmount.Amount.Cmp(best.MinAmount.Amount) > 0 {
				best = tier
				found = true
			}
		}
	}
	return best, found
}

// Validate checks tier ordering and currency consistency.
func (t Table) Validate() error {
	if t.Currency == "" {
		return errEmptyCurrency
	}
	seen := map[string]bool{}
	for _, tier := range t.Tiers {
		if tier.Name == "" {
			return errUnnamedTier
		}
		if seen[tier.Name] {
			return errDuplicateTier
		}
		seen[tier.Name] = true
		if tier.MinAmount.Currency != t.Currency {
			return errTierCurrency
		}
		if tier.MinAmount.Amount.IsNegative() {
			return errNegativeTier
		}
	}
	return nil
}

// Sorted returns the tiers ascending by MinAmount.
func (t Table) Sorted() []Tier {
	out := make([]Tier, len(t.Tiers))
	copy(out, t.Tiers)
	sort.Slice(out, func(i, j int) bool {
		return out[i].MinAmount.Amount.Cmp(out[j].MinAmount.Amount) < 0
	})
	return out
}

type tierError string

func (e tierError) Error() string { return string(e) }

const (
	errEmptyCurrency tierError = "subscription: tier table currency is empty"
	errUnnamedTier   tierError = "subscription: tier has no name"
	errDuplicateTier tierError = "subscription: duplicate tier name"
	errTierCurrency  tierError = "subscription: tier currency does not match table"
	errNegativeTier  tierError = "subscription: tier minimum amount is negative"
)

// DefaultTable returns the stock USD tier bands.
func DefaultTable() Table {
	return Table{
		Currency: "usd",
		Tiers: []Tier{
			{
				Name:      "starter",
				MinAmount: types.USD("29.00"),
				Grants: map[journal.TokenKind]int64{
					journal.KindRegular: 100,
					journal.KindMail:    10,
				},
			},
			{
				Name:      "growth",
				MinAmount: types.USD("79.00"),
				Grants: map[journal.TokenKind]int64{
					journal.KindRegular: 350,
					journal.KindMail:    40,
				},
			},
			{
				Name:      "scale",
				MinAmount: types.USD("199.00"),
				Grants: map[journal.TokenKind]int64{
					journal.KindRegular: 1000,
					journal.KindMail:    150,
				},
			},
		},
	}
}
