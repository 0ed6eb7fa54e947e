// Package observability provides a metrics extension for the token ledger
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/lienworks/tokenledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnCredit               = (*MetricsExtension)(nil)
	_ plugin.OnDebit                = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientBalance  = (*MetricsExtension)(nil)
	_ plugin.OnPackagePurchased     = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnDiscountApplied      = (*MetricsExtension)(nil)
	_ plugin.OnScheduleGenerated    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Journal metrics
	Credits             Counter
	Debits              Counter
	InsufficientBalance Counter

	// Allocation metrics
	PackagesPurchased    Counter
	InvoicesGranted      Counter
	SubscriptionCanceled Counter
	DiscountsApplied     Counter
	GrantBatchSize       Histogram

	// Amortization metrics
	SchedulesGenerated Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Journal metrics
		Credits:             factory.Counter("tokenledger.journal.credits"),
		Debits:              factory.Counter("tokenledger.journal.debits"),
		InsufficientBalance: factory.Counter("tokenledger.journal.insufficient_balance"),

		// Allocation metrics
		PackagesPurchased:    factory.Counter("tokenledger.packages.purchased"),
		InvoicesGranted:      factory.Counter("tokenledger.invoices.granted"),
		SubscriptionCanceled: factory.Counter("tokenledger.subscriptions.canceled"),
		DiscountsApplied:     factory.Counter("tokenledger.discounts.applied"),
		GrantBatchSize:       factory.Histogram("tokenledger.grants.batch.size"),

		// Amortization metrics
		SchedulesGenerated: factory.Counter("tokenledger.schedules.generated"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnCredit implements plugin.OnCredit.
func (m *MetricsExtension) OnCredit(_ context.Context, _ interface{}) error {
	m.Credits.Inc()
	return nil
}

// OnDebit implements plugin.OnDebit.
func (m *MetricsExtension) OnDebit(_ context.Context, _ interface{}) error {
	m.Debits.Inc()
	return nil
}

// OnInsufficientBalance implements plugin.OnInsufficientBalance.
func (m *MetricsExtension) OnInsufficientBalance(_ context.Context, _, _ string, _, _ int64) error {
	m.InsufficientBalance.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Allocation hooks
// ──────────────────────────────────────────────────

// OnPackagePurchased implements plugin.OnPackagePurchased.
func (m *MetricsExtension) OnPackagePurchased(_ context.Context, _ interface{}, entries []interface{}) error {
	m.PackagesPurchased.Inc()
	m.GrantBatchSize.Observe(float64(len(entries)))
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _, _ string, entries []interface{}) error {
	m.InvoicesGranted.Inc()
	m.GrantBatchSize.Observe(float64(len(entries)))
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _, _ string) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnDiscountApplied implements plugin.OnDiscountApplied.
func (m *MetricsExtension) OnDiscountApplied(_ context.Context, _ interface{}, _ string) error {
	m.DiscountsApplied.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Amortization hooks
// ──────────────────────────────────────────────────

// OnScheduleGenerated implements plugin.OnScheduleGenerated.
func (m *MetricsExtension) OnScheduleGenerated(_ context.Context, _ interface{}) error {
	m.SchedulesGenerated.Inc()
	return nil
}
