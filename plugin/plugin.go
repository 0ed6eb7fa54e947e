// Package plugin provides an extensible plugin system for the token ledger.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnCredit is called after tokens are credited to a user.
type OnCredit interface {
	Plugin
	OnCredit(ctx context.Context, entry interface{}) error
}

// OnDebit is called after tokens are debited from a user.
type OnDebit interface {
	Plugin
	OnDebit(ctx context.Context, entry interface{}) error
}

// OnInsufficientBalance is called when a debit is rejected for lack of tokens.
type OnInsufficientBalance interface {
	Plugin
	OnInsufficientBalance(ctx context.Context, userID, tokenKind string, requested, available int64) error
}

// ──────────────────────────────────────────────────
// Allocation hooks
// ──────────────────────────────────────────────────

// OnPackagePurchased is called after a package purchase is credited.
type OnPackagePurchased interface {
	Plugin
	OnPackagePurchased(ctx context.Context, pkg interface{}, entries []interface{}) error
}

// OnInvoicePaid is called after a subscription invoice grants tokens.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, userID, tier string, entries []interface{}) error
}

// OnSubscriptionCanceled is called when a subscription cancellation is recorded.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, userID, externalRef string) error
}

// OnDiscountApplied is called when a discount code is redeemed on a purchase.
type OnDiscountApplied interface {
	Plugin
	OnDiscountApplied(ctx context.Context, code interface{}, userID string) error
}

// ──────────────────────────────────────────────────
// Amortization hooks
// ──────────────────────────────────────────────────

// OnScheduleGenerated is called after an amortization schedule is generated.
type OnScheduleGenerated interface {
	Plugin
	OnScheduleGenerated(ctx context.Context, schedule interface{}) error
}
