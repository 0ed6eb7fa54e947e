// Package memory provides an in-memory Store for tests and development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
)

type Store struct {
	mu sync.RWMutex

	// Journal storage, append order preserved
	entries []*journal.Entry

	// Idempotency index: user|kind|externalRef -> entry
	byRef map[string]*journal.Entry

	// Pricing rules keyed by action
	rules map[journal.ActionType]*pricing.Rule

	// Package storage
	packages map[string]*catalog.Package

	// Discount codes keyed by normalized code
	discounts map[string]*discount.Code

	// Amortization schedules
	schedules map[string]*amortize.Schedule
}

func New() *Store {
	return &Store{
		entries:   make([]*journal.Entry, 0),
		byRef:     make(map[string]*journal.Entry),
		rules:     make(map[journal.ActionType]*pricing.Rule),
		packages:  make(map[string]*catalog.Package),
		discounts: make(map[string]*discount.Code),
		schedules: make(map[string]*amortize.Schedule),
	}
}

func refKey(userID string, kind journal.TokenKind, ref string) string {
	return userID + "|" + string(kind) + "|" + ref
}

// Journal Store implementation

func (s *Store) AppendEntry(_ context.Context, e *journal.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ExternalRef != "" {
		key := refKey(e.UserID, e.TokenKind, e.ExternalRef)
		if _, exists := s.byRef[key]; exists {
			return tokenledger.ErrDuplicateExternalRef
		}
		s.byRef[key] = e
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) GetEntryByRef(_ context.Context, userID string, kind journal.TokenKind, externalRef string) (*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byRef[refKey(userID, kind, externalRef)]; ok {
		return e, nil
	}
	return nil, tokenledger.ErrEntryNotFound
}

func (s *Store) SumDeltas(_ context.Context, userID string, kind journal.TokenKind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, e := range s.entries {
		if e.UserID == userID && e.TokenKind == kind {
			sum += e.TokensChanged
		}
	}
	return sum, nil
}

func (s *Store) QueryEntries(_ context.Context, userID string, kind journal.TokenKind, opts journal.QueryOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Entry, 0)
	for _, e := range s.entries {
		if e.UserID != userID || e.TokenKind != kind {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		if !opts.Since.IsZero() && e.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && e.CreatedAt.After(opts.Until) {
			continue
		}
		result = append(result, e)
	}

	// Newest first, matching the SQL stores
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// Pricing Store implementation

func (s *Store) UpsertRule(_ context.Context, r *pricing.Rule) error {
	if r.Action == "" || r.Tokens <= 0 {
		return tokenledger.ErrInvalidPricing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[r.Action] = r
	return nil
}

func (s *Store) GetRule(_ context.Context, action journal.ActionType) (*pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rules[action]; ok {
		return r, nil
	}
	return nil, tokenledger.ErrUnknownPricing
}

func (s *Store) ListRules(_ context.Context) ([]*pricing.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*pricing.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Action < result[j].Action })
	return result, nil
}

// Package Store implementation

func (s *Store) CreatePackage(_ context.Context, p *catalog.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.packages[p.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}
	for _, other := range s.packages {
		if other.Slug == p.Slug {
			return tokenledger.ErrAlreadyExists
		}
	}
	s.packages[p.ID.String()] = p
	return nil
}

func (s *Store) GetPackage(_ context.Context, pkgID id.PackageID) (*catalog.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.packages[pkgID.String()]; ok {
		return p, nil
	}
	return nil, tokenledger.ErrPackageNotFound
}

func (s *Store) GetPackageBySlug(_ context.Context, slug string) (*catalog.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.packages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, tokenledger.ErrPackageNotFound
}

func (s *Store) ListPackages(_ context.Context, opts catalog.ListOpts) ([]*catalog.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.Package, 0)
	for _, p := range s.packages {
		if opts.Status == "" || p.Status == opts.Status {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *Store) UpdatePackage(_ context.Context, p *catalog.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.packages[p.ID.String()]; !exists {
		return tokenledger.ErrPackageNotFound
	}
	p.Touch()
	s.packages[p.ID.String()] = p
	return nil
}

func (s *Store) ArchivePackage(_ context.Context, pkgID id.PackageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.packages[pkgID.String()]
	if !exists {
		return tokenledger.ErrPackageNotFound
	}
	p.Status = catalog.StatusArchived
	p.Touch()
	return nil
}

// Discount Store implementation

func (s *Store) CreateDiscountCode(_ context.Context, c *discount.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(c.Code)
	if _, exists := s.discounts[key]; exists {
		return tokenledger.ErrAlreadyExists
	}
	s.discounts[key] = c
	return nil
}

func (s *Store) GetDiscountCode(_ context.Context, code string) (*discount.Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.discounts[strings.ToUpper(code)]; ok {
		return c, nil
	}
	return nil, tokenledger.ErrDiscountNotFound
}

func (s *Store) UpdateDiscountCode(_ context.Context, c *discount.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(c.Code)
	if _, exists := s.discounts[key]; !exists {
		return tokenledger.ErrDiscountNotFound
	}
	c.Touch()
	s.discounts[key] = c
	return nil
}

// Schedule Store implementation

func (s *Store) SaveSchedule(_ context.Context, sched *amortize.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[sched.ID.String()] = sched
	return nil
}

func (s *Store) GetSchedule(_ context.Context, schedID id.ScheduleID) (*amortize.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sched, ok := s.schedules[schedID.String()]; ok {
		return sched, nil
	}
	return nil, tokenledger.ErrScheduleNotFound
}

func (s *Store) GetScheduleByRef(_ context.Context, userID, loanRef string) (*amortize.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sched := range s.schedules {
		if sched.UserID == userID && sched.LoanRef == loanRef {
			return sched, nil
		}
	}
	return nil, tokenledger.ErrScheduleNotFound
}

func (s *Store) ListSchedules(_ context.Context, userID string, limit, offset int) ([]*amortize.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*amortize.Schedule, 0)
	for _, sched := range s.schedules {
		if sched.UserID == userID {
			result = append(result, sched)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	start := offset
	if start > len(result) {
		start = len(result)
	}
	end := start + limit
	if limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
