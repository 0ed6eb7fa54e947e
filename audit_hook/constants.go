package audithook

// Action constants for audit events.
const (
	// Journal actions
	ActionTokensCredited      = "tokens.credited"
	ActionTokensDebited       = "tokens.debited"
	ActionBalanceInsufficient = "balance.insufficient"

	// Allocation actions
	ActionPackagePurchased     = "package.purchased"
	ActionInvoicePaid          = "invoice.paid"
	ActionSubscriptionCanceled = "subscription.canceled"
	ActionDiscountApplied      = "discount.applied"

	// Amortization actions
	ActionScheduleGenerated = "schedule.generated"
)

// Resource constants for audit events.
const (
	ResourceJournal      = "journal"
	ResourcePackage      = "package"
	ResourceInvoice      = "invoice"
	ResourceSubscription = "subscription"
	ResourceDiscount     = "discount"
	ResourceSchedule     = "schedule"
)

// Category constants for audit events.
const (
	CategoryTokens       = "tokens"
	CategoryBilling      = "billing"
	CategoryAmortization = "amortization"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
