package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/discount"
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
	"github.com/lienworks/tokenledger/types"
)

// ==================== Journal models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:tl_journal_entries"`

	ID            string            `grove:"id,pk"`
	UserID        string            `grove:"user_id"`
	TokenKind     string            `grove:"token_kind"`
	TxKind        string            `grove:"tx_kind"`
	Action        string            `grove:"action"`
	TokensBefore  int64             `grove:"tokens_before"`
	TokensChanged int64             `grove:"tokens_changed"`
	TokensAfter   int64             `grove:"tokens_after"`
	UnitCost      string            `grove:"unit_cost"`
	TotalCost     string            `grove:"total_cost"`
	Currency      string            `grove:"currency"`
	ExternalRef   string            `grove:"external_ref"`
	Reason        string            `grove:"reason"`
	Metadata      map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt     time.Time         `grove:"created_at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	m := &entryModel{
		ID:            e.ID.String(),
		UserID:        e.UserID,
		TokenKind:     string(e.TokenKind),
		TxKind:        string(e.Kind),
		Action:        string(e.Action),
		TokensBefore:  e.TokensBefore,
		TokensChanged: e.TokensChanged,
		TokensAfter:   e.TokensAfter,
		ExternalRef:   e.ExternalRef,
		Reason:        e.Reason,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
	if e.UnitCost != nil {
		m.UnitCost = e.UnitCost.Amount.String()
		m.Currency = e.UnitCost.Currency
	}
	if e.TotalCost != nil {
		m.TotalCost = e.TotalCost.Amount.String()
		m.Currency = e.TotalCost.Currency
	}
	return m
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	e := &journal.Entry{
		ID:            entryID,
		UserID:        m.UserID,
		TokenKind:     journal.TokenKind(m.TokenKind),
		Kind:          journal.TransactionKind(m.TxKind),
		Action:        journal.ActionType(m.Action),
		TokensBefore:  m.TokensBefore,
		TokensChanged: m.TokensChanged,
		TokensAfter:   m.TokensAfter,
		ExternalRef:   m.ExternalRef,
		Reason:        m.Reason,
		Metadata:      m.Metadata,
		CreatedAt:     m.CreatedAt,
	}
	if m.UnitCost != "" {
		money, err := types.ParseMoney(m.UnitCost, m.Currency)
		if err != nil {
			return nil, err
		}
		e.UnitCost = &money
	}
	if m.TotalCost != "" {
		money, err := types.ParseMoney(m.TotalCost, m.Currency)
		if err != nil {
			return nil, err
		}
		e.TotalCost = &money
	}
	return e, nil
}

// ==================== Pricing models ====================

type ruleModel struct {
	grove.BaseModel `grove:"table:tl_pricing_rules"`

	ID        string    `grove:"id,pk"`
	Action    string    `grove:"action"`
	TokenKind string    `grove:"token_kind"`
	Tokens    int64     `grove:"tokens"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toRuleModel(r *pricing.Rule) *ruleModel {
	return &ruleModel{
		ID:        r.ID.String(),
		Action:    string(r.Action),
		TokenKind: string(r.TokenKind),
		Tokens:    r.Tokens,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromRuleModel(m *ruleModel) (*pricing.Rule, error) {
	ruleID, err := id.ParseRuleID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &pricing.Rule{
		ID:        ruleID,
		Action:    journal.ActionType(m.Action),
		TokenKind: journal.TokenKind(m.TokenKind),
		Tokens:    m.Tokens,
	}
	r.CreatedAt = m.CreatedAt
	r.UpdatedAt = m.UpdatedAt
	return r, nil
}

// ==================== Package models ====================

type packageModel struct {
	grove.BaseModel `grove:"table:tl_packages"`

	ID          string            `grove:"id,pk"`
	Name        string            `grove:"name"`
	Slug        string            `grove:"slug"`
	Description string            `grove:"description"`
	Status      string            `grove:"status"`
	Price       string            `grove:"price"`
	Currency    string            `grove:"currency"`
	Grants      json.RawMessage   `grove:"grants,type:jsonb"`
	Metadata    map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt   time.Time         `grove:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"`
}

func toPackageModel(p *catalog.Package) *packageModel {
	grants, _ := json.Marshal(p.Grants) //nolint:errcheck // best-effort

	return &packageModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Status:      string(p.Status),
		Price:       p.Price.Amount.String(),
		Currency:    p.Price.Currency,
		Grants:      grants,
		Metadata:    p.Metadata,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromPackageModel(m *packageModel) (*catalog.Package, error) {
	pkgID, err := id.ParsePackageID(m.ID)
	if err != nil {
		return nil, err
	}
	price, err := types.ParseMoney(m.Price, m.Currency)
	if err != nil {
		return nil, err
	}

	var grants []catalog.Grant
	if len(m.Grants) > 0 {
		_ = json.Unmarshal(m.Grants, &grants) //nolint:errcheck // best-effort
	}

	p := &catalog.Package{
		ID:          pkgID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		Status:      catalog.Status(m.Status),
		Price:       price,
		Grants:      grants,
		Metadata:    m.Metadata,
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return p, nil
}

// ==================== Discount models ====================

type discountModel struct {
	grove.BaseModel `grove:"table:tl_discount_codes"`

	ID             string            `grove:"id,pk"`
	Code           string            `grove:"code"`
	Percentage     int64             `grove:"percentage"`
	MaxRedemptions int64             `grove:"max_redemptions"`
	TimesRedeemed  int64             `grove:"times_redeemed"`
	ValidFrom      *time.Time        `grove:"valid_from"`
	ValidUntil     *time.Time        `grove:"valid_until"`
	Metadata       map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt      time.Time         `grove:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"`
}

func toDiscountModel(c *discount.Code) *discountModel {
	return &discountModel{
		ID:             c.ID.String(),
		Code:           discount.Normalize(c.Code),
		Percentage:     c.Percentage,
		MaxRedemptions: c.MaxRedemptions,
		TimesRedeemed:  c.TimesRedeemed,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		Metadata:       c.Metadata,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromDiscountModel(m *discountModel) (*discount.Code, error) {
	discountID, err := id.ParseDiscountID(m.ID)
	if err != nil {
		return nil, err
	}
	c := &discount.Code{
		ID:             discountID,
		Code:           m.Code,
		Percentage:     m.Percentage,
		MaxRedemptions: m.MaxRedemptions,
		TimesRedeemed:  m.TimesRedeemed,
		ValidFrom:      m.ValidFrom,
		ValidUntil:     m.ValidUntil,
		Metadata:       m.Metadata,
	}
	c.CreatedAt = m.CreatedAt
	c.UpdatedAt = m.UpdatedAt
	return c, nil
}

// ==================== Schedule models ====================

type scheduleModel struct {
	grove.BaseModel `grove:"table:tl_amortization_schedules"`

	ID         string          `grove:"id,pk"`
	UserID     string          `grove:"user_id"`
	LoanRef    string          `grove:"loan_ref"`
	Parameters json.RawMessage `grove:"parameters,type:jsonb"`
	Payment    string          `grove:"payment"`
	Currency   string          `grove:"currency"`
	Entries    json.RawMessage `grove:"entries,type:jsonb"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toScheduleModel(s *amortize.Schedule) *scheduleModel {
	params, _ := json.Marshal(s.Parameters) //nolint:errcheck // best-effort
	entries, _ := json.Marshal(s.Entries)   //nolint:errcheck // best-effort

	return &scheduleModel{
		ID:         s.ID.String(),
		UserID:     s.UserID,
		LoanRef:    s.LoanRef,
		Parameters: params,
		Payment:    s.Payment.Amount.String(),
		Currency:   s.Payment.Currency,
		Entries:    entries,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) (*amortize.Schedule, error) {
	schedID, err := id.ParseScheduleID(m.ID)
	if err != nil {
		return nil, err
	}
	payment, err := types.ParseMoney(m.Payment, m.Currency)
	if err != nil {
		return nil, err
	}

	var params amortize.LoanParameters
	if len(m.Parameters) > 0 {
		if err := json.Unmarshal(m.Parameters, &params); err != nil {
			return nil, err
		}
	}
	var entries []amortize.ScheduleEntry
	if len(m.Entries) > 0 {
		if err := json.Unmarshal(m.Entries, &entries); err != nil {
			return nil, err
		}
	}

	s := &amortize.Schedule{
		ID:         schedID,
		UserID:     m.UserID,
		LoanRef:    m.LoanRef,
		Parameters: params,
		Payment:    payment,
		Entries:    entries,
	}
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return s, nil
}
