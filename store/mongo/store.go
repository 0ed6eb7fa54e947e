// Package mongo implements the token ledger store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
	ledgerstore "github.com/lienworks/tokenledger/store"
)

// Collection name constants.
const (
	colJournal   = "tl_journal_entries"
	colRules     = "tl_pricing_rules"
	colPackages  = "tl_packages"
	colDiscounts = "tl_discount_codes"
	colSchedules = "tl_amortization_schedules"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all token ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tokenledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tokenledger.ErrDuplicateExternalRef
		}
		return fmt.Errorf("tokenledger/mongo: append entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntryByRef(ctx context.Context, userID string, kind journal.TokenKind, externalRef string) (*journal.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID, "token_kind": string(kind), "external_ref": externalRef}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get entry by ref: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) SumDeltas(ctx context.Context, userID string, kind journal.TokenKind) (int64, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{
				"user_id":    userID,
				"token_kind": string(kind),
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$tokens_changed"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colJournal).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("tokenledger/mongo: sum deltas: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("tokenledger/mongo: sum deltas decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (s *Store) QueryEntries(ctx context.Context, userID string, kind journal.TokenKind, opts journal.QueryOpts) ([]*journal.Entry, error) {
	filter := bson.M{
		"user_id":    userID,
		"token_kind": string(kind),
	}
	if opts.Kind != "" {
		filter["tx_kind"] = string(opts.Kind)
	}
	if opts.Action != "" {
		filter["action"] = string(opts.Action)
	}
	created := bson.M{}
	if !opts.Since.IsZero() {
		created["$gte"] = opts.Since
	}
	if !opts.Until.IsZero() {
		created["$lte"] = opts.Until
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: query entries: %w", err)
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
	t := now()

	res, err := s.mdb.NewUpdate((*ruleModel)(nil)).
		Filter(bson.M{"action": m.Action}).
		Set("token_kind", m.TokenKind).
		Set("tokens", m.Tokens).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: upsert rule: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}

	m.UpdatedAt = t
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tokenledger/mongo: insert rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, action journal.ActionType) (*pricing.Rule, error) {
	var m ruleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"action": string(action)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrUnknownPricing
		}
		return nil, fmt.Errorf("tokenledger/mongo: get rule: %w", err)
	}
	return fromRuleModel(&m)
}

func (s *Store) ListRules(ctx context.Context) ([]*pricing.Rule, error) {
	var models []ruleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "action", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list rules: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tokenledger.ErrAlreadyExists
		}
		return fmt.Errorf("tokenledger/mongo: create package: %w", err)
	}
	return nil
}

func (s *Store) GetPackage(ctx context.Context, pkgID id.PackageID) (*catalog.Package, error) {
	var m packageModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pkgID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrPackageNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get package: %w", err)
	}
	return fromPackageModel(&m)
}

func (s *Store) GetPackageBySlug(ctx context.Context, slug string) (*catalog.Package, error) {
	var m packageModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"slug": slug}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrPackageNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get package by slug: %w", err)
	}
	return fromPackageModel(&m)
}

func (s *Store) ListPackages(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Package, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []packageModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "slug", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list packages: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: update package: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokenledger.ErrPackageNotFound
	}
	return nil
}

func (s *Store) ArchivePackage(ctx context.Context, pkgID id.PackageID) error {
	t := now()
	res, err := s.mdb.NewUpdate((*packageModel)(nil)).
		Filter(bson.M{"_id": pkgID.String()}).
		Set("status", string(catalog.StatusArchived)).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: archive package: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokenledger.ErrPackageNotFound
	}
	return nil
}

// ==================== Discount Store ====================

func (s *Store) CreateDiscountCode(ctx context.Context, c *discount.Code) error {
	m := toDiscountModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tokenledger.ErrAlreadyExists
		}
		return fmt.Errorf("tokenledger/mongo: create discount code: %w", err)
	}
	return nil
}

func (s *Store) GetDiscountCode(ctx context.Context, code string) (*discount.Code, error) {
	var m discountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"code": discount.Normalize(code)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get discount code: %w", err)
	}
	return fromDiscountModel(&m)
}

func (s *Store) UpdateDiscountCode(ctx context.Context, c *discount.Code) error {
	m := toDiscountModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: update discount code: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokenledger.ErrDiscountNotFound
	}
	return nil
}

// ==================== Schedule Store ====================

func (s *Store) SaveSchedule(ctx context.Context, sched *amortize.Schedule) error {
	m := toScheduleModel(sched)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: save schedule: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tokenledger/mongo: insert schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, schedID id.ScheduleID) (*amortize.Schedule, error) {
	var m scheduleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": schedID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get schedule: %w", err)
	}
	return fromScheduleModel(&m)
}

func (s *Store) GetScheduleByRef(ctx context.Context, userID, loanRef string) (*amortize.Schedule, error) {
	var m scheduleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID, "loan_ref": loanRef}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: get schedule by ref: %w", err)
	}
	return fromScheduleModel(&m)
}

func (s *Store) ListSchedules(ctx context.Context, userID string, limit, offset int) ([]*amortize.Schedule, error) {
	var models []scheduleModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if offset > 0 {
		q = q.Skip(int64(offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: list schedules: %w", err)
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

// isNoDocuments checks for the driver's no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all token ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colJournal: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "token_kind", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "token_kind", Value: 1}, {Key: "tx_kind", Value: 1}}},
			{
				// Sparse would still index ref-less entries because user_id and
				// token_kind are always present; a partial filter limits the
				// uniqueness constraint to entries that actually carry a ref.
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "token_kind", Value: 1}, {Key: "external_ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"external_ref": bson.M{"$exists": true}}),
			},
		},
		colRules: {
			{
				Keys:    bson.D{{Key: "action", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colPackages: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colDiscounts: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSchedules: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "loan_ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"loan_ref": bson.M{"$gt": ""}}),
			},
		},
	}
}
