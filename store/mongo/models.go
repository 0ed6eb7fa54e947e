package mongo

import (
	"time"

	"github.com/shopspring/decimal"
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

	ID            string            `grove:"id,pk"          bson:"_id"`
	UserID        string            `grove:"user_id"        bson:"user_id"`
	TokenKind     string            `grove:"token_kind"     bson:"token_kind"`
	TxKind        string            `grove:"tx_kind"        bson:"tx_kind"`
	Action        string            `grove:"action"         bson:"action"`
	TokensBefore  int64             `grove:"tokens_before"  bson:"tokens_before"`
	TokensChanged int64             `grove:"tokens_changed" bson:"tokens_changed"`
	TokensAfter   int64             `grove:"tokens_after"   bson:"tokens_after"`
	UnitCost      string            `grove:"unit_cost"      bson:"unit_cost,omitempty"`
	TotalCost     string            `grove:"total_cost"     bson:"total_cost,omitempty"`
	Currency      string            `grove:"currency"       bson:"currency,omitempty"`
	ExternalRef   string            `grove:"external_ref"   bson:"external_ref,omitempty"`
	Reason        string            `grove:"reason"         bson:"reason,omitempty"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
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

	ID        string    `grove:"id,pk"      bson:"_id"`
	Action    string    `grove:"action"     bson:"action"`
	TokenKind string    `grove:"token_kind" bson:"token_kind"`
	Tokens    int64     `grove:"tokens"     bson:"tokens"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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

	ID          string            `grove:"id,pk"       bson:"_id"`
	Name        string            `grove:"name"        bson:"name"`
	Slug        string            `grove:"slug"        bson:"slug"`
	Description string            `grove:"description" bson:"description"`
	Status      string            `grove:"status"      bson:"status"`
	Price       string            `grove:"price"       bson:"price"`
	Currency    string            `grove:"currency"    bson:"currency"`
	Grants      []grantModel      `grove:"grants"      bson:"grants"`
	Metadata    map[string]string `grove:"metadata"    bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"  bson:"updated_at"`
}

type grantModel struct {
	TokenKind string `bson:"token_kind"`
	Tokens    int64  `bson:"tokens"`
	Bonus     int64  `bson:"bonus"`
}

func toPackageModel(p *catalog.Package) *packageModel {
	grants := make([]grantModel, len(p.Grants))
	for i, g := range p.Grants {
		grants[i] = grantModel{
			TokenKind: string(g.TokenKind),
			Tokens:    g.Tokens,
			Bonus:     g.Bonus,
		}
	}
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
	grants := make([]catalog.Grant, len(m.Grants))
	for i, g := range m.Grants {
		grants[i] = catalog.Grant{
			TokenKind: journal.TokenKind(g.TokenKind),
			Tokens:    g.Tokens,
			Bonus:     g.Bonus,
		}
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

	ID             string            `grove:"id,pk"           bson:"_id"`
	Code           string            `grove:"code"            bson:"code"`
	Percentage     int64             `grove:"percentage"      bson:"percentage"`
	MaxRedemptions int64             `grove:"max_redemptions" bson:"max_redemptions"`
	TimesRedeemed  int64             `grove:"times_redeemed"  bson:"times_redeemed"`
	ValidFrom      *time.Time        `grove:"valid_from"      bson:"valid_from,omitempty"`
	ValidUntil     *time.Time        `grove:"valid_until"     bson:"valid_until,omitempty"`
	Metadata       map[string]string `grove:"metadata"        bson:"metadata,omitempty"`
	CreatedAt      time.Time         `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"      bson:"updated_at"`
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

	ID         string               `grove:"id,pk"      bson:"_id"`
	UserID     string               `grove:"user_id"    bson:"user_id"`
	LoanRef    string               `grove:"loan_ref"   bson:"loan_ref"`
	Parameters loanParametersModel  `grove:"parameters" bson:"parameters"`
	Payment    string               `grove:"payment"    bson:"payment"`
	Currency   string               `grove:"currency"   bson:"currency"`
	Entries    []scheduleEntryModel `grove:"entries"    bson:"entries"`
	CreatedAt  time.Time            `grove:"created_at" bson:"created_at"`
	UpdatedAt  time.Time            `grove:"updated_at" bson:"updated_at"`
}

type loanParametersModel struct {
	Principal      string    `bson:"principal"`
	AnnualRate     string    `bson:"annual_rate"`
	TermMonths     int       `bson:"term_months"`
	PropertyValue  string    `bson:"property_value"`
	FirstDueDate   time.Time `bson:"first_due_date,omitempty"`
	DownPayment    string    `bson:"down_payment,omitempty"`
	ClosingCosts   string    `bson:"closing_costs,omitempty"`
	MonthlyIncome  string    `bson:"monthly_income,omitempty"`
	MonthlyExpense string    `bson:"monthly_expense,omitempty"`
}

type scheduleEntryModel struct {
	Number           int       `bson:"number"`
	DueDate          time.Time `bson:"due_date,omitempty"`
	Payment          string    `bson:"payment"`
	Principal        string    `bson:"principal"`
	Interest         string    `bson:"interest"`
	RemainingBalance string    `bson:"remaining_balance"`
}

func toScheduleModel(s *amortize.Schedule) *scheduleModel {
	cur := s.Payment.Currency
	entries := make([]scheduleEntryModel, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = scheduleEntryModel{
			Number:           e.Number,
			DueDate:          e.DueDate,
			Payment:          e.Payment.Amount.String(),
			Principal:        e.Principal.Amount.String(),
			Interest:         e.Interest.Amount.String(),
			RemainingBalance: e.RemainingBalance.Amount.String(),
		}
	}
	p := s.Parameters
	return &scheduleModel{
		ID:      s.ID.String(),
		UserID:  s.UserID,
		LoanRef: s.LoanRef,
		Parameters: loanParametersModel{
			Principal:      p.Principal.Amount.String(),
			AnnualRate:     p.AnnualRate.String(),
			TermMonths:     p.TermMonths,
			PropertyValue:  p.PropertyValue.Amount.String(),
			FirstDueDate:   p.FirstDueDate,
			DownPayment:    p.DownPayment.Amount.String(),
			ClosingCosts:   p.ClosingCosts.Amount.String(),
			MonthlyIncome:  p.MonthlyIncome.Amount.String(),
			MonthlyExpense: p.MonthlyExpense.Amount.String(),
		},
		Payment:   s.Payment.Amount.String(),
		Currency:  cur,
		Entries:   entries,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
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

	money := func(s string) (types.Money, error) {
		if s == "" {
			return types.Zero(m.Currency), nil
		}
		return types.ParseMoney(s, m.Currency)
	}

	pm := m.Parameters
	params := amortize.LoanParameters{
		TermMonths:   pm.TermMonths,
		FirstDueDate: pm.FirstDueDate,
	}
	if params.Principal, err = money(pm.Principal); err != nil {
		return nil, err
	}
	if params.PropertyValue, err = money(pm.PropertyValue); err != nil {
		return nil, err
	}
	if params.DownPayment, err = money(pm.DownPayment); err != nil {
		return nil, err
	}
	if params.ClosingCosts, err = money(pm.ClosingCosts); err != nil {
		return nil, err
	}
	if params.MonthlyIncome, err = money(pm.MonthlyIncome); err != nil {
		return nil, err
	}
	if params.MonthlyExpense, err = money(pm.MonthlyExpense); err != nil {
		return nil, err
	}
	if pm.AnnualRate != "" {
		rate, err := decimal.NewFromString(pm.AnnualRate)
		if err != nil {
			return nil, err
		}
		params.AnnualRate = rate
	}

	entries := make([]amortize.ScheduleEntry, len(m.Entries))
	for i, em := range m.Entries {
		e := amortize.ScheduleEntry{Number: em.Number, DueDate: em.DueDate}
		if e.Payment, err = money(em.Payment); err != nil {
			return nil, err
		}
		if e.Principal, err = money(em.Principal); err != nil {
			return nil, err
		}
		if e.Interest, err = money(em.Interest); err != nil {
			return nil, err
		}
		if e.RemainingBalance, err = money(em.RemainingBalance); err != nil {
			return nil, err
		}
		entries[i] = e
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
