// Package catalog defines purchasable token packages.
package catalog

import (
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/types"
)

// Status is the lifecycle state of a package.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDraft    Status = "draft"
)

// Package is a catalog entry: the token grants a buyer receives and the
// price charged through the payment gateway.
type Package struct {
	types.Entity
	ID          id.PackageID      `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Status      Status            `json:"status"`
	Price       types.Money       `json:"price"`
	Grants      []Grant           `json:"grants"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Grant is one token allotment inside a package: a base quantity plus a
// promotional bonus, both credited on purchase.
type Grant struct {
	TokenKind journal.TokenKind `json:"token_kind"`
	Tokens    int64             `json:"tokens"`
	Bonus     int64             `json:"bonus"`
}

// Total returns the full credited quantity for the grant.
func (g Grant) Total() int64 { return g.Tokens + g.Bonus }

// FindGrant returns the grant for a token kind, or nil.
func (p *Package) FindGrant(kind journal.TokenKind) *Grant {
	for i := range p.Grants {
		if p.Grants[i].TokenKind == kind {
			return &p.Grants[i]
		}
	}
	return nil
}

// UnitCost returns the effective price per base token for a grant, used to
// populate the monetary fields of purchase entries. Bonus tokens are free,
// so only the base quantity divides the price.
func (p *Package) UnitCost(kind journal.TokenKind) types.Money {
	g := p.FindGrant(kind)
	if g == nil || g.Tokens <= 0 {
		return types.Zero(p.Price.Currency)
	}
	return p.Price.Divide(g.Tokens)
}

// ListOpts filters package listings.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
