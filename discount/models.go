// Package discount defines promotional codes applied to package prices
// before the gateway charge. Discounts never touch the token journal.
package discount

import (
	"strings"
	"time"

	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/types"
)

// Code is a percentage discount with optional validity window and global
// redemption cap. Per-user single use is enforced by the allocator.
type Code struct {
	types.Entity
	ID             id.DiscountID     `json:"id"`
	Code           string            `json:"code"`
	Percentage     int64             `json:"percentage"`
	MaxRedemptions int64             `json:"max_redemptions"`
	TimesRedeemed  int64             `json:"times_redeemed"`
	ValidFrom      *time.Time        `json:"valid_from,omitempty"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Normalize returns the canonical form of a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsActive reports whether the code can be redeemed at t.
func (c *Code) IsActive(t time.Time) bool {
	if c.ValidFrom != nil && t.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && t.After(*c.ValidUntil) {
		return false
	}
	if c.MaxRedemptions > 0 && c.TimesRedeemed >= c.MaxRedemptions {
		return false
	}
	return true
}

// Apply returns the price after the discount, rounded to the currency
// scale.
func (c *Code) Apply(price types.Money) types.Money {
	return price.DiscountPercent(c.Percentage)
}

// Validate checks structural fields.
func (c *Code) Validate() error {
	if c.Code == "" {
		return errEmptyCode
	}
	if c.Percentage <= 0 || c.Percentage > 100 {
		return errBadPercentage
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && c.ValidUntil.Before(*c.ValidFrom) {
		return errWindowInverted
	}
	return nil
}

type codeError string

func (e codeError) Error() string { return string(e) }

const (
	errEmptyCode      codeError = "discount: code is empty"
	errBadPercentage  codeError = "discount: percentage must be in (0, 100]"
	errWindowInverted codeError = "discount: valid_until precedes valid_from"
)
