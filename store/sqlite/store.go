// Package sqlite implements the token ledger store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
	ledgerstore "github.com/lienworks/tokenledger/store"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tokenledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tokenledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Journal Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *journal.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m := toEntryModel(e)
	q := s.sdb.NewInsert(m)
	if e.ExternalRef != "" {
		q = q.OnConflict("(user_id, token_kind, external_ref) WHERE external_ref != '' DO NOTHING")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if e.ExternalRef != "" {
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return tokenledger.ErrDuplicateExternalRef
		}
	}
	return nil
}

func (s *Store) GetEntryByRef(ctx context.Context, userID string, kind journal.TokenKind, externalRef string) (*journal.Entry, error) {
	m := new(entryModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("token_kind = ?", string(kind)).
		Where("external_ref = ?", externalRef).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) SumDeltas(ctx context.Context, userID string, kind journal.TokenKind) (int64, error) {
	var total int64
	err := s.sdb.NewRaw(`
		SELECT COALESCE(SUM(tokens_changed), 0) FROM tl_journal_entries
		WHERE user_id = ? AND token_kind = ?
	`, userID, string(kind)).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) QueryEntries(ctx context.Context, userID string, kind journal.TokenKind, opts journal.QueryOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID).
		Where("token_kind = ?", string(kind))

	if opts.Kind != "" {
		q = q.Where("tx_kind = ?", string(opts.Kind))
	}
	if opts.Action != "" {
		q = q.Where("action = ?", string(opts.Action))
	}
	if !opts.Since.IsZero() {
		q = q.Where("created_at >= ?", opts.Since)
	}
	if !opts.Until.IsZero() {
		q = q.Where("created_at <= ?", opts.Until)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Pricing Store ====================

func (s *Store) UpsertRule(ctx context.Context, r *pricing.Rule) error {
	if r.Action == "" || r.Tokens <= 0 {
		return tokenledger.ErrInvalidPricing
	}
	m := toRuleModel(r)
	m.UpdatedAt = now()
	_, err := s.sdb.NewInsert(m).
		OnConflict("(action) DO UPDATE").
		Set("token_kind = EXCLUDED.token_kind").
		Set("tokens = EXCLUDED.tokens").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetRule(ctx context.Context, action journal.ActionType) (*pricing.Rule, error) {
	m := new(ruleModel)
	err := s.sdb.NewSelect(m).
		Where("action = ?", string(action)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrUnknownPricing
		}
		return nil, err
	}
	return fromRuleModel(m)
}

func (s *Store) ListRules(ctx context.Context) ([]*pricing.Rule, error) {
	var models []ruleModel
	if err := s.sdb.NewSelect(&models).OrderExpr("action ASC").Scan(ctx); err != nil {
		return nil, err
	}
	result := make([]*pricing.Rule, len(models))
	for i := range models {
		r, err := fromRuleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Package Store ====================

func (s *Store) CreatePackage(ctx context.Context, p *catalog.Package) error {
	m := toPackageModel(p)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPackage(ctx context.Context, pkgID id.PackageID) (*catalog.Package, error) {
	m := new(packageModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", pkgID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrPackageNotFound
		}
		return nil, err
	}
	return fromPackageModel(m)
}

func (s *Store) GetPackageBySlug(ctx context.Context, slug string) (*catalog.Package, error) {
	m := new(packageModel)
	err := s.sdb.NewSelect(m).
		Where("slug = ?", slug).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrPackageNotFound
		}
		return nil, err
	}
	return fromPackageModel(m)
}

func (s *Store) ListPackages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Package, error) {
	var models []packageModel
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("slug ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*catalog.Package, len(models))
	for i := range models {
		p, err := fromPackageModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePackage(ctx context.Context, p *catalog.Package) error {
	m := toPackageModel(p)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrPackageNotFound
	}
	return nil
}

func (s *Store) ArchivePackage(ctx context.Context, pkgID id.PackageID) error {
	m := new(packageModel)
	res, err := s.sdb.NewUpdate(m).
		Set("status = ?", string(catalog.StatusArchived)).
		Set("updated_at = ?", now()).
		Where("id = ?", pkgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrPackageNotFound
	}
	return nil
}

// ==================== Discount Store ====================

func (s *Store) CreateDiscountCode(ctx context.Context, c *discount.Code) error {
	m := toDiscountModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetDiscountCode(ctx context.Context, code string) (*discount.Code, error) {
	m := new(discountModel)
	err := s.sdb.NewSelect(m).
		Where("code = ?", discount.Normalize(code)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrDiscountNotFound
		}
		return nil, err
	}
	return fromDiscountModel(m)
}

func (s *Store) UpdateDiscountCode(ctx context.Context, c *discount.Code) error {
	m := toDiscountModel(c)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrDiscountNotFound
	}
	return nil
}

// ==================== Schedule Store ====================

func (s *Store) SaveSchedule(ctx context.Context, sched *amortize.Schedule) error {
	m := toScheduleModel(sched)
	m.UpdatedAt = now()
	_, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("parameters = EXCLUDED.parameters").
		Set("payment = EXCLUDED.payment").
		Set("entries = EXCLUDED.entries").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSchedule(ctx context.Context, schedID id.ScheduleID) (*amortize.Schedule, error) {
	m := new(scheduleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", schedID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrScheduleNotFound
		}
		return nil, err
	}
	return fromScheduleModel(m)
}

func (s *Store) GetScheduleByRef(ctx context.Context, userID, loanRef string) (*amortize.Schedule, error) {
	m := new(scheduleModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("loan_ref = ?", loanRef).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrScheduleNotFound
		}
		return nil, err
	}
	return fromScheduleModel(m)
}

func (s *Store) ListSchedules(ctx context.Context, userID string, limit, offset int) ([]*amortize.Schedule, error) {
	var models []scheduleModel
	q := s.sdb.NewSelect(&models).Where("user_id = ?", userID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*amortize.Schedule, len(models))
	for i := range models {
		sched, err := fromScheduleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sched
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
