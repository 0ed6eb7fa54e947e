// Package audithook bridges token ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lienworks/tokenledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnCredit               = (*Extension)(nil)
	_ plugin.OnDebit                = (*Extension)(nil)
	_ plugin.OnInsufficientBalance  = (*Extension)(nil)
	_ plugin.OnPackagePurchased     = (*Extension)(nil)
	_ plugin.OnInvoicePaid          = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnDiscountApplied      = (*Extension)(nil)
	_ plugin.OnScheduleGenerated    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so the package carries no backend dependency; callers
// inject their concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges token ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnCredit implements plugin.OnCredit.
func (e *Extension) OnCredit(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTokensCredited, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryTokens, nil,
		"event", "tokens_credited",
	)
}

// OnDebit implements plugin.OnDebit.
func (e *Extension) OnDebit(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTokensDebited, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryTokens, nil,
		"event", "tokens_debited",
	)
}

// OnInsufficientBalance implements plugin.OnInsufficientBalance.
func (e *Extension) OnInsufficientBalance(ctx context.Context, userID, tokenKind string, requested, available int64) error {
	return e.record(ctx, ActionBalanceInsufficient, SeverityWarning, OutcomeFailure,
		ResourceJournal, userID, CategoryTokens, nil,
		"user_id", userID,
		"token_kind", tokenKind,
		"requested", requested,
		"available", available,
	)
}

// ──────────────────────────────────────────────────
// Allocation hooks
// ──────────────────────────────────────────────────

// OnPackagePurchased implements plugin.OnPackagePurchased.
func (e *Extension) OnPackagePurchased(ctx context.Context, _ interface{}, entries []interface{}) error {
	return e.record(ctx, ActionPackagePurchased, SeverityInfo, OutcomeSuccess,
		ResourcePackage, "", CategoryBilling, nil,
		"event", "package_purchased",
		"grant_count", len(entries),
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, userID, tier string, entries []interface{}) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, userID, CategoryBilling, nil,
		"user_id", userID,
		"tier", tier,
		"grant_count", len(entries),
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, userID, externalRef string) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, userID, CategoryBilling, nil,
		"user_id", userID,
		"external_ref", externalRef,
	)
}

// OnDiscountApplied implements plugin.OnDiscountApplied.
func (e *Extension) OnDiscountApplied(ctx context.Context, _ interface{}, userID string) error {
	return e.record(ctx, ActionDiscountApplied, SeverityInfo, OutcomeSuccess,
		ResourceDiscount, userID, CategoryBilling, nil,
		"user_id", userID,
	)
}

// ──────────────────────────────────────────────────
// Amortization hooks
// ──────────────────────────────────────────────────

// OnScheduleGenerated implements plugin.OnScheduleGenerated.
func (e *Extension) OnScheduleGenerated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionScheduleGenerated, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, "", CategoryAmortization, nil,
		"event", "schedule_generated",
	)
}

// record builds an AuditEvent and sends it through the recorder.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
