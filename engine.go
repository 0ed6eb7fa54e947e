// Package tokenledger implements a token and financial ledger engine for
// CRM backends: per-user token balances derived from an append-only
// journal, package and subscription allocation, and loan amortization
// math on exact decimals.
package tokenledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/plugin"
	"github.com/lienworks/tokenledger/pricing"
	"github.com/lienworks/tokenledger/store"
	"github.com/lienworks/tokenledger/subscription"
	"github.com/lienworks/tokenledger/types"
)

// Engine is the main token ledger engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Per-(user, token kind) lock scope for check-then-append.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// Configuration
	tiers  subscription.Table
	limits amortize.ValidationLimits
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		locks:   make(map[string]*sync.Mutex),
		tiers:   subscription.DefaultTable(),
		limits:  amortize.DefaultLimits(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTierTable replaces the default subscription tier bands.
func WithTierTable(t subscription.Table) Option {
	return func(e *Engine) {
		e.tiers = t
	}
}

// WithValidationLimits replaces the default loan underwriting limits.
func WithValidationLimits(l amortize.ValidationLimits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// Start migrates the store, seeds default pricing rules, and initializes
// plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.tiers.Validate(); err != nil {
		return err
	}
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}
	if err := e.seedPricing(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("token ledger started",
		"tiers", len(e.tiers.Tiers),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// seedPricing installs default action costs for any action without a rule.
func (e *Engine) seedPricing(ctx context.Context) error {
	for _, def := range pricing.Defaults() {
		if _, err := e.store.GetRule(ctx, def.Action); err == nil {
			continue
		} else if !errors.Is(err, ErrUnknownPricing) {
			return err
		}
		if err := e.store.UpsertRule(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// lockFor returns the mutex guarding one user's balance in one token kind.
func (e *Engine) lockFor(userID string, kind journal.TokenKind) *sync.Mutex {
	key := userID + ":" + string(kind)

	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	mu, ok := e.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[key] = mu
	}
	return mu
}

// ──────────────────────────────────────────────────
// Balances and journal
// ──────────────────────────────────────────────────

// Balance returns the user's current balance for a token kind. A user
// with no journal entries has a balance of zero.
func (e *Engine) Balance(ctx context.Context, userID string, kind journal.TokenKind) (int64, error) {
	if !kind.Valid() {
		return 0, ErrUnknownTokenKind
	}
	return e.store.SumDeltas(ctx, userID, kind)
}

// History returns journal entries for a user and token kind, newest first.
func (e *Engine) History(ctx context.Context, userID string, kind journal.TokenKind, opts journal.QueryOpts) ([]*journal.Entry, error) {
	if !kind.Valid() {
		return nil, ErrUnknownTokenKind
	}
	return e.store.QueryEntries(ctx, userID, kind, opts)
}

// CreditRequest describes a token credit.
type CreditRequest struct {
	UserID      string
	TokenKind   journal.TokenKind
	Kind        journal.TransactionKind
	Tokens      int64
	UnitCost    *types.Money
	TotalCost   *types.Money
	ExternalRef string
	Reason      string
	Metadata    map[string]string
}

// Credit appends a positive journal entry. When ExternalRef is set the
// operation is idempotent per (user, kind, ref): a replay returns the
// previously written entry and writes nothing.
func (e *Engine) Credit(ctx context.Context, req CreditRequest) (*journal.Entry, error) {
	if req.Tokens <= 0 {
		return nil, ErrInvalidAmount
	}
	if !req.TokenKind.Valid() {
		return nil, ErrUnknownTokenKind
	}
	if req.UserID == "" {
		return nil, ErrInvalidInput
	}
	if req.Kind == "" {
		req.Kind = journal.TxManualAdjustment
	}

	mu := e.lockFor(req.UserID, req.TokenKind)
	mu.Lock()
	defer mu.Unlock()

	if req.ExternalRef != "" {
		existing, err := e.store.GetEntryByRef(ctx, req.UserID, req.TokenKind, req.ExternalRef)
		if err == nil {
			e.logger.Debug("credit replay ignored",
				"user_id", req.UserID,
				"token_kind", req.TokenKind,
				"external_ref", req.ExternalRef,
			)
			return existing, nil
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
	}

	before, err := e.store.SumDeltas(ctx, req.UserID, req.TokenKind)
	if err != nil {
		return nil, err
	}

	entry := &journal.Entry{
		ID:            id.NewEntryID(),
		UserID:        req.UserID,
		TokenKind:     req.TokenKind,
		Kind:          req.Kind,
		TokensBefore:  before,
		TokensChanged: req.Tokens,
		TokensAfter:   before + req.Tokens,
		UnitCost:      req.UnitCost,
		TotalCost:     req.TotalCost,
		ExternalRef:   req.ExternalRef,
		Reason:        req.Reason,
		Metadata:      req.Metadata,
		CreatedAt:     types.Now(),
	}

	if err := e.store.AppendEntry(ctx, entry); err != nil {
		// Another engine instance may have won the unique-index race.
		if errors.Is(err, ErrDuplicateExternalRef) && req.ExternalRef != "" {
			return e.store.GetEntryByRef(ctx, req.UserID, req.TokenKind, req.ExternalRef)
		}
		return nil, err
	}

	e.plugins.EmitCredit(ctx, entry)
	return entry, nil
}

// DebitRequest describes a token debit.
type DebitRequest struct {
	UserID      string
	TokenKind   journal.TokenKind
	Kind        journal.TransactionKind
	Action      journal.ActionType
	Tokens      int64
	ExternalRef string
	Reason      string
	Metadata    map[string]string
}

// Debit checks the balance and appends a negative journal entry as one
// atomic unit per (user, kind). An insufficient balance returns an
// InsufficientBalanceError and writes nothing.
func (e *Engine) Debit(ctx context.Context, req DebitRequest) (*journal.Entry, error) {
	if req.Tokens <= 0 {
		return nil, ErrInvalidAmount
	}
	if !req.TokenKind.Valid() {
		return nil, ErrUnknownTokenKind
	}
	if req.UserID == "" {
		return nil, ErrInvalidInput
	}
	if req.Kind == "" {
		req.Kind = journal.TxConsumption
	}

	mu := e.lockFor(req.UserID, req.TokenKind)
	mu.Lock()
	defer mu.Unlock()

	before, err := e.store.SumDeltas(ctx, req.UserID, req.TokenKind)
	if err != nil {
		return nil, err
	}
	if before < req.Tokens {
		e.plugins.EmitInsufficientBalance(ctx, req.UserID, string(req.TokenKind), req.Tokens, before)
		return nil, &InsufficientBalanceError{
			UserID:    req.UserID,
			TokenKind: req.TokenKind,
			Requested: req.Tokens,
			Available: before,
		}
	}

	entry := &journal.Entry{
		ID:            id.NewEntryID(),
		UserID:        req.UserID,
		TokenKind:     req.TokenKind,
		Kind:          req.Kind,
		Action:        req.Action,
		TokensBefore:  before,
		TokensChanged: -req.Tokens,
		TokensAfter:   before - req.Tokens,
		ExternalRef:   req.ExternalRef,
		Reason:        req.Reason,
		Metadata:      req.Metadata,
		CreatedAt:     types.Now(),
	}

	if err := e.store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitDebit(ctx, entry)
	return entry, nil
}

// DebitForAction resolves the pricing rule for an action and debits its
// token cost. An unpriced action returns ErrUnknownPricing without
// touching the balance.
func (e *Engine) DebitForAction(ctx context.Context, userID string, action journal.ActionType, reason string) (*journal.Entry, error) {
	rule, err := e.store.GetRule(ctx, action)
	if err != nil {
		return nil, err
	}
	return e.Debit(ctx, DebitRequest{
		UserID:    userID,
		TokenKind: rule.TokenKind,
		Kind:      journal.TxConsumption,
		Action:    action,
		Tokens:    rule.Tokens,
		Reason:    reason,
	})
}

// TransferCost returns the pricing rule for an action without mutating
// any balance.
func (e *Engine) TransferCost(ctx context.Context, action journal.ActionType) (*pricing.Rule, error) {
	return e.store.GetRule(ctx, action)
}

// Refund credits tokens back against a prior consumption.
func (e *Engine) Refund(ctx context.Context, userID string, kind journal.TokenKind, tokens int64, externalRef, reason string) (*journal.Entry, error) {
	return e.Credit(ctx, CreditRequest{
		UserID:      userID,
		TokenKind:   kind,
		Kind:        journal.TxRefund,
		Tokens:      tokens,
		ExternalRef: externalRef,
		Reason:      reason,
	})
}

// ──────────────────────────────────────────────────
// Pricing rule management
// ──────────────────────────────────────────────────

// UpsertRule creates or replaces the pricing rule for an action.
func (e *Engine) UpsertRule(ctx context.Context, r *pricing.Rule) error {
	if r.Action == "" || r.Tokens <= 0 || !r.TokenKind.Valid() {
		return ErrInvalidPricing
	}
	if r.ID.IsNil() {
		r.ID = id.NewRuleID()
		r.Entity = types.NewEntity()
	}
	return e.store.UpsertRule(ctx, r)
}

// GetRule returns the pricing rule for an action.
func (e *Engine) GetRule(ctx context.Context, action journal.ActionType) (*pricing.Rule, error) {
	return e.store.GetRule(ctx, action)
}

// ListRules returns all pricing rules.
func (e *Engine) ListRules(ctx context.Context) ([]*pricing.Rule, error) {
	return e.store.ListRules(ctx)
}

// ──────────────────────────────────────────────────
// Package management
// ──────────────────────────────────────────────────

// CreatePackage creates a new token package.
func (e *Engine) CreatePackage(ctx context.Context, p *catalog.Package) error {
	if p.Slug == "" || len(p.Grants) == 0 {
		return ErrPackageInvalid
	}
	for _, g := range p.Grants {
		if !g.TokenKind.Valid() || g.Tokens <= 0 || g.Bonus < 0 {
			return ErrPackageInvalid
		}
	}
	if p.ID.IsNil() {
		p.ID = id.NewPackageID()
	}
	p.Entity = types.NewEntity()
	if p.Status == "" {
		p.Status = catalog.StatusActive
	}
	return e.store.CreatePackage(ctx, p)
}

// GetPackage retrieves a package by ID.
func (e *Engine) GetPackage(ctx context.Context, pkgID id.PackageID) (*catalog.Package, error) {
	return e.store.GetPackage(ctx, pkgID)
}

// GetPackageBySlug retrieves a package by slug.
func (e *Engine) GetPackageBySlug(ctx context.Context, slug string) (*catalog.Package, error) {
	return e.store.GetPackageBySlug(ctx, slug)
}

// ListPackages lists packages, optionally filtered by status.
func (e *Engine) ListPackages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Package, error) {
	return e.store.ListPackages(ctx, opts)
}

// ArchivePackage retires a package from sale. Existing journal entries
// referencing it are unaffected.
func (e *Engine) ArchivePackage(ctx context.Context, pkgID id.PackageID) error {
	return e.store.ArchivePackage(ctx, pkgID)
}

// ──────────────────────────────────────────────────
// Discount code management
// ──────────────────────────────────────────────────

// CreateDiscountCode registers a promotional code.
func (e *Engine) CreateDiscountCode(ctx context.Context, c *discount.Code) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID.IsNil() {
		c.ID = id.NewDiscountID()
	}
	c.Code = discount.Normalize(c.Code)
	c.Entity = types.NewEntity()
	return e.store.CreateDiscountCode(ctx, c)
}

// GetDiscountCode retrieves a code by its normalized string.
func (e *Engine) GetDiscountCode(ctx context.Context, code string) (*discount.Code, error) {
	return e.store.GetDiscountCode(ctx, code)
}

// ──────────────────────────────────────────────────
// Amortization
// ──────────────────────────────────────────────────

// GenerateSchedule amortizes a loan, persists the schedule under the
// user's loan reference, and emits a plugin event.
func (e *Engine) GenerateSchedule(ctx context.Context, userID, loanRef string, p amortize.LoanParameters) (*amortize.Schedule, error) {
	sched, err := amortize.GenerateSchedule(p)
	if err != nil {
		return nil, err
	}
	sched.UserID = userID
	sched.LoanRef = loanRef

	if err := e.store.SaveSchedule(ctx, &sched); err != nil {
		return nil, err
	}

	e.plugins.EmitScheduleGenerated(ctx, &sched)
	e.logger.Info("amortization schedule generated",
		"user_id", userID,
		"loan_ref", loanRef,
		"months", len(sched.Entries),
		"payment", sched.Payment.String(),
	)
	return &sched, nil
}

// GetSchedule retrieves a persisted schedule by ID.
func (e *Engine) GetSchedule(ctx context.Context, schedID id.ScheduleID) (*amortize.Schedule, error) {
	return e.store.GetSchedule(ctx, schedID)
}

// GetScheduleByRef retrieves a persisted schedule by the user's loan
// reference.
func (e *Engine) GetScheduleByRef(ctx context.Context, userID, loanRef string) (*amortize.Schedule, error) {
	return e.store.GetScheduleByRef(ctx, userID, loanRef)
}

// ListSchedules lists a user's schedules, newest first.
func (e *Engine) ListSchedules(ctx context.Context, userID string, limit, offset int) ([]*amortize.Schedule, error) {
	return e.store.ListSchedules(ctx, userID, limit, offset)
}

// ValidateLoan checks loan parameters against the engine's underwriting
// limits.
func (e *Engine) ValidateLoan(p amortize.LoanParameters) amortize.Report {
	return amortize.ValidateLoanParameters(p, e.limits)
}

// ProjectROI runs the return projection for a loan.
func (e *Engine) ProjectROI(p amortize.LoanParameters) (amortize.ROIProjection, error) {
	return amortize.ProjectROI(p)
}
