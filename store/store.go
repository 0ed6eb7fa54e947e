package store

import (
	"context"

	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
)

// Store is the unified storage interface for all token ledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Journal methods. The journal is append-only: entries are never
	// updated or deleted, and balances derive from SumDeltas.
	AppendEntry(ctx context.Context, e *journal.Entry) error
	GetEntryByRef(ctx context.Context, userID string, kind journal.TokenKind, externalRef string) (*journal.Entry, error)
	SumDeltas(ctx context.Context, userID string, kind journal.TokenKind) (int64, error)
	QueryEntries(ctx context.Context, userID string, kind journal.TokenKind, opts journal.QueryOpts) ([]*journal.Entry, error)

	// Pricing rule methods
	UpsertRule(ctx context.Context, r *pricing.Rule) error
	GetRule(ctx context.Context, action journal.ActionType) (*pricing.Rule, error)
	ListRules(ctx context.Context) ([]*pricing.Rule, error)

	// Package methods
	CreatePackage(ctx context.Context, p *catalog.Package) error
	GetPackage(ctx context.Context, pkgID id.PackageID) (*catalog.Package, error)
	GetPackageBySlug(ctx context.Context, slug string) (*catalog.Package, error)
	ListPackages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Package, error)
	UpdatePackage(ctx context.Context, p *catalog.Package) error
	ArchivePackage(ctx context.Context, pkgID id.PackageID) error

	// Discount code methods
	CreateDiscountCode(ctx context.Context, c *discount.Code) error
	GetDiscountCode(ctx context.Context, code string) (*discount.Code, error)
	UpdateDiscountCode(ctx context.Context, c *discount.Code) error

	// Amortization schedule methods
	SaveSchedule(ctx context.Context, s *amortize.Schedule) error
	GetSchedule(ctx context.Context, schedID id.ScheduleID) (*amortize.Schedule, error)
	GetScheduleByRef(ctx context.Context, userID, loanRef string) (*amortize.Schedule, error)
	ListSchedules(ctx context.Context, userID string, limit, offset int) ([]*amortize.Schedule, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
