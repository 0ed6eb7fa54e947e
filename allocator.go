package tokenledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/types"
)

// PurchaseOpts carries optional parameters for a package purchase.
type PurchaseOpts struct {
	DiscountCode string
}

// PurchaseResult reports the outcome of a package purchase.
type PurchaseResult struct {
	Package  *catalog.Package
	Entries  []*journal.Entry
	Charged  types.Money
	Discount *discount.Code
	// Replayed is true when the external reference had already been
	// credited and no new journal entries were written.
	Replayed bool
}

// Quote is a priced package offer, before any money moves.
type Quote struct {
	Package    *catalog.Package
	ListPrice  types.Money
	FinalPrice types.Money
	Discount   *discount.Code
}

// metaPackageSlug and metaDiscountCode are the journal metadata keys
// written by the allocator.
const (
	metaPackageSlug  = "package_slug"
	metaDiscountCode = "discount_code"
)

// QuotePackage prices a package for a user, applying a discount code if
// one is supplied. Discounts reduce the gateway charge only; token
// grants are never affected. No balances are touched.
func (e *Engine) QuotePackage(ctx context.Context, userID, slug, discountCode string) (*Quote, error) {
	return e.quotePackage(ctx, userID, slug, discountCode, "")
}

func (e *Engine) quotePackage(ctx context.Context, userID, slug, discountCode, ignoreRef string) (*Quote, error) {
	pkg, err := e.store.GetPackageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	switch pkg.Status {
	case catalog.StatusActive:
	case catalog.StatusArchived:
		return nil, ErrPackageArchived
	default:
		return nil, ErrPackageNotOnSale
	}

	q := &Quote{
		Package:    pkg,
		ListPrice:  pkg.Price,
		FinalPrice: pkg.Price,
	}
	if discountCode == "" {
		return q, nil
	}

	code, err := e.validateDiscount(ctx, userID, discountCode, ignoreRef)
	if err != nil {
		return nil, err
	}
	q.Discount = code
	q.FinalPrice = code.Apply(pkg.Price)
	return q, nil
}

// PurchasePackage credits every grant in a package to the user, one
// journal entry per token kind, with monetary fields populated from the
// charged price. The external reference makes the whole purchase
// idempotent: a replay returns the original entries and writes nothing.
func (e *Engine) PurchasePackage(ctx context.Context, userID, slug, externalRef string, opts PurchaseOpts) (*PurchaseResult, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("%w: purchase requires an external reference", ErrInvalidInput)
	}

	// Entries already journaled under this reference belong to this same
	// purchase, so they must not trip the per-user discount check on a
	// retry of an interrupted attempt.
	quote, err := e.quotePackage(ctx, userID, slug, opts.DiscountCode, externalRef)
	if err != nil {
		return nil, err
	}
	pkg := quote.Package

	result := &PurchaseResult{
		Package:  pkg,
		Charged:  quote.FinalPrice,
		Discount: quote.Discount,
	}

	meta := map[string]string{metaPackageSlug: pkg.Slug}
	if quote.Discount != nil {
		meta[metaDiscountCode] = quote.Discount.Code
	}

	// Each grant is credited independently under the same reference, so a
	// retry of a partially completed purchase replays the grants already
	// written and fills in the missing ones.
	wroteNew := false
	for i, g := range pkg.Grants {
		existing, err := e.store.GetEntryByRef(ctx, userID, g.TokenKind, externalRef)
		if err == nil {
			result.Entries = append(result.Entries, existing)
			continue
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}

		unitCost := pkg.UnitCost(g.TokenKind)
		req := CreditRequest{
			UserID:      userID,
			TokenKind:   g.TokenKind,
			Kind:        journal.TxPurchase,
			Tokens:      g.Total(),
			UnitCost:    &unitCost,
			ExternalRef: externalRef,
			Reason:      fmt.Sprintf("package purchase: %s", pkg.Slug),
			Metadata:    meta,
		}
		if i == 0 {
			// The charged amount is carried once, on the primary grant.
			charged := quote.FinalPrice
			req.TotalCost = &charged
		}
		entry, err := e.Credit(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)
		wroteNew = true
	}

	if !wroteNew {
		result.Replayed = true
		return result, nil
	}

	if quote.Discount != nil {
		quote.Discount.TimesRedeemed++
		if err := e.store.UpdateDiscountCode(ctx, quote.Discount); err != nil {
			e.logger.Warn("discount redemption count not updated",
				"code", quote.Discount.Code,
				"error", err,
			)
		}
		e.plugins.EmitDiscountApplied(ctx, quote.Discount, userID)
	}

	entries := make([]interface{}, len(result.Entries))
	for i, en := range result.Entries {
		entries[i] = en
	}
	e.plugins.EmitPackagePurchased(ctx, pkg, entries)

	e.logger.Info("package purchased",
		"user_id", userID,
		"package", pkg.Slug,
		"charged", result.Charged.String(),
		"external_ref", externalRef,
	)
	return result, nil
}

// HandleInvoicePaid maps a paid subscription invoice to its tier band
// and credits the tier's monthly grants. The invoice reference makes the
// grant idempotent across webhook replays.
func (e *Engine) HandleInvoicePaid(ctx context.Context, userID string, amountPaid types.Money, invoiceRef string) ([]*journal.Entry, error) {
	if invoiceRef == "" {
		return nil, fmt.Errorf("%w: invoice grant requires a reference", ErrInvalidInput)
	}
	if !amountPaid.IsPositive() {
		return nil, ErrInvoiceNotCredit
	}

	tier, ok := e.tiers.TierForAmount(amountPaid)
	if !ok {
		if amountPaid.Currency != e.tiers.Currency {
			return nil, ErrCurrencyMismatch
		}
		return nil, ErrUnknownTier
	}

	var granted []*journal.Entry
	for kind, tokens := range tier.Grants {
		if tokens <= 0 {
			continue
		}
		entry, err := e.Credit(ctx, CreditRequest{
			UserID:      userID,
			TokenKind:   kind,
			Kind:        journal.TxSubscriptionGrant,
			Tokens:      tokens,
			ExternalRef: invoiceRef,
			Reason:      fmt.Sprintf("subscription grant: %s tier", tier.Name),
			Metadata:    map[string]string{"tier": tier.Name},
		})
		if err != nil {
			return nil, err
		}
		granted = append(granted, entry)
	}

	entries := make([]interface{}, len(granted))
	for i, en := range granted {
		entries[i] = en
	}
	e.plugins.EmitInvoicePaid(ctx, userID, tier.Name, entries)

	e.logger.Info("subscription invoice granted",
		"user_id", userID,
		"tier", tier.Name,
		"amount", amountPaid.String(),
		"invoice_ref", invoiceRef,
	)
	return granted, nil
}

// HandleSubscriptionCanceled records a cancellation. Tokens already
// granted are never clawed back; the event is surfaced to plugins and
// the log only.
func (e *Engine) HandleSubscriptionCanceled(ctx context.Context, userID, externalRef string) {
	e.plugins.EmitSubscriptionCanceled(ctx, userID, externalRef)
	e.logger.Info("subscription canceled, granted tokens retained",
		"user_id", userID,
		"external_ref", externalRef,
	)
}

// validateDiscount checks a code's window, global redemption cap, and
// per-user single use. Single use is enforced against the journal: any
// prior purchase entry of this user carrying the code counts as a
// redemption, except entries under ignoreRef, which belong to the
// purchase being validated.
func (e *Engine) validateDiscount(ctx context.Context, userID, rawCode, ignoreRef string) (*discount.Code, error) {
	code, err := e.store.GetDiscountCode(ctx, rawCode)
	if err != nil {
		return nil, err
	}

	now := types.Now()
	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return nil, ErrDiscountNotStarted
	}
	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return nil, ErrDiscountExpired
	}
	if code.MaxRedemptions > 0 && code.TimesRedeemed >= code.MaxRedemptions {
		return nil, ErrDiscountExhausted
	}

	for _, kind := range []journal.TokenKind{journal.KindRegular, journal.KindMail} {
		purchases, err := e.store.QueryEntries(ctx, userID, kind, journal.QueryOpts{Kind: journal.TxPurchase})
		if err != nil {
			return nil, err
		}
		for _, entry := range purchases {
			if ignoreRef != "" && entry.ExternalRef == ignoreRef {
				continue
			}
			if entry.Metadata[metaDiscountCode] == code.Code {
				return nil, ErrDiscountAlreadyUsed
			}
		}
	}
	return code, nil
}
