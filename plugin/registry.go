package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onCredit               []OnCredit
	onDebit                []OnDebit
	onInsufficientBalance  []OnInsufficientBalance
	onPackagePurchased     []OnPackagePurchased
	onInvoicePaid          []OnInvoicePaid
	onSubscriptionCanceled []OnSubscriptionCanceled
	onDiscountApplied      []OnDiscountApplied
	onScheduleGenerated    []OnScheduleGenerated
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCredit); ok {
		r.onCredit = append(r.onCredit, v)
	}
	if v, ok := p.(OnDebit); ok {
		r.onDebit = append(r.onDebit, v)
	}
	if v, ok := p.(OnInsufficientBalance); ok {
		r.onInsufficientBalance = append(r.onInsufficientBalance, v)
	}
	if v, ok := p.(OnPackagePurchased); ok {
		r.onPackagePurchased = append(r.onPackagePurchased, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnDiscountApplied); ok {
		r.onDiscountApplied = append(r.onDiscountApplied, v)
	}
	if v, ok := p.(OnScheduleGenerated); ok {
		r.onScheduleGenerated = append(r.onScheduleGenerated, v)
	}

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCredit emits a credit event.
func (r *Registry) EmitCredit(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onCredit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCredit(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnCredit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDebit emits a debit event.
func (r *Registry) EmitDebit(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onDebit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDebit(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnDebit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInsufficientBalance emits a rejected-debit event.
func (r *Registry) EmitInsufficientBalance(ctx context.Context, userID, tokenKind string, requested, available int64) {
	r.mu.RLock()
	plugins := r.onInsufficientBalance
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInsufficientBalance(ctx, userID, tokenKind, requested, available)
		}); err != nil {
			r.logger.Warn("plugin OnInsufficientBalance failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPackagePurchased emits a package purchase event.
func (r *Registry) EmitPackagePurchased(ctx context.Context, pkg interface{}, entries []interface{}) {
	r.mu.RLock()
	plugins := r.onPackagePurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPackagePurchased(ctx, pkg, entries)
		}); err != nil {
			r.logger.Warn("plugin OnPackagePurchased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoicePaid emits a subscription grant event.
func (r *Registry) EmitInvoicePaid(ctx context.Context, userID, tier string, entries []interface{}) {
	r.mu.RLock()
	plugins := r.onInvoicePaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoicePaid(ctx, userID, tier, entries)
		}); err != nil {
			r.logger.Warn("plugin OnInvoicePaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCanceled emits a cancellation event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, userID, externalRef string) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCanceled(ctx, userID, externalRef)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDiscountApplied emits a discount redemption event.
func (r *Registry) EmitDiscountApplied(ctx context.Context, code interface{}, userID string) {
	r.mu.RLock()
	plugins := r.onDiscountApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDiscountApplied(ctx, code, userID)
		}); err != nil {
			r.logger.Warn("plugin OnDiscountApplied failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitScheduleGenerated emits a schedule generation event.
func (r *Registry) EmitScheduleGenerated(ctx context.Context, schedule interface{}) {
	r.mu.RLock()
	plugins := r.onScheduleGenerated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnScheduleGenerated(ctx, schedule)
		}); err != nil {
			r.logger.Warn("plugin OnScheduleGenerated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout runs a hook with a bounded execution window so a
// misbehaving plugin cannot stall the engine.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
