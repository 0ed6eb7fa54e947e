package tokenledger_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	tokenledger "github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/pricing"
	"github.com/lienworks/tokenledger/store/memory"
)

func newTestEngine(t *testing.T, opts ...tokenledger.Option) *tokenledger.Engine {
	t.Helper()

	opts = append([]tokenledger.Option{
		tokenledger.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	e := tokenledger.New(memory.New(), opts...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	return e
}

func TestCreditAndBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	entry, err := e.Credit(ctx, tokenledger.CreditRequest{
		UserID:    "user-1",
		TokenKind: journal.KindRegular,
		Kind:      journal.TxPurchase,
		Tokens:    100,
		Reason:    "initial grant",
	})
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	if entry.TokensBefore != 0 || entry.TokensChanged != 100 || entry.TokensAfter != 100 {
		t.Errorf("Entry balances: before=%d changed=%d after=%d", entry.TokensBefore, entry.TokensChanged, entry.TokensAfter)
	}
	if entry.ID.IsNil() {
		t.Error("Entry ID not assigned")
	}
	if !entry.IsCredit() {
		t.Error("Entry should be a credit")
	}

	bal, err := e.Balance(ctx, "user-1", journal.KindRegular)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if bal != 100 {
		t.Errorf("Balance: got %d, want 100", bal)
	}

	// A user with no entries has a zero balance.
	bal, err = e.Balance(ctx, "user-2", journal.KindRegular)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if bal != 0 {
		t.Errorf("Balance for unseen user: got %d, want 0", bal)
	}
}

func TestCreditValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  tokenledger.CreditRequest
		want error
	}{
		{"Zero tokens", tokenledger.CreditRequest{UserID: "u", TokenKind: journal.KindRegular, Tokens: 0}, tokenledger.ErrInvalidAmount},
		{"Negative tokens", tokenledger.CreditRequest{UserID: "u", TokenKind: journal.KindRegular, Tokens: -5}, tokenledger.ErrInvalidAmount},
		{"Unknown kind", tokenledger.CreditRequest{UserID: "u", TokenKind: "stamps", Tokens: 10}, tokenledger.ErrUnknownTokenKind},
		{"Missing user", tokenledger.CreditRequest{TokenKind: journal.KindRegular, Tokens: 10}, tokenledger.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Credit(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreditIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	req := tokenledger.CreditRequest{
		UserID:      "user-1",
		TokenKind:   journal.KindRegular,
		Kind:        journal.TxPurchase,
		Tokens:      100,
		ExternalRef: "evt_abc123",
	}

	first, err := e.Credit(ctx, req)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	replay, err := e.Credit(ctx, req)
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	if replay.ID != first.ID {
		t.Errorf("Replay returned a different entry: %s vs %s", replay.ID, first.ID)
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 100 {
		t.Errorf("Balance after replay: got %d, want 100", bal)
	}

	history, err := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("History length after replay: got %d, want 1", len(history))
	}
}

func TestDebit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)

	entry, err := e.Debit(ctx, tokenledger.DebitRequest{
		UserID:    "user-1",
		TokenKind: journal.KindRegular,
		Tokens:    60,
		Reason:    "lead analysis",
	})
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}

	if entry.TokensBefore != 100 || entry.TokensChanged != -60 || entry.TokensAfter != 40 {
		t.Errorf("Entry balances: before=%d changed=%d after=%d", entry.TokensBefore, entry.TokensChanged, entry.TokensAfter)
	}
	if entry.Kind != journal.TxConsumption {
		t.Errorf("Kind: got %s, want %s", entry.Kind, journal.TxConsumption)
	}
	if !entry.IsDebit() {
		t.Error("Entry should be a debit")
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 40 {
		t.Errorf("Balance: got %d, want 40", bal)
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 50)

	_, err := e.Debit(ctx, tokenledger.DebitRequest{
		UserID:    "user-1",
		TokenKind: journal.KindRegular,
		Tokens:    60,
	})
	if !errors.Is(err, tokenledger.ErrInsufficientBalance) {
		t.Fatalf("Got %v, want ErrInsufficientBalance", err)
	}

	var insufficient *tokenledger.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatal("Expected InsufficientBalanceError")
	}
	if insufficient.Requested != 60 || insufficient.Available != 50 {
		t.Errorf("Error detail: requested=%d available=%d", insufficient.Requested, insufficient.Available)
	}

	// A rejected debit writes nothing.
	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 50 {
		t.Errorf("Balance after rejection: got %d, want 50", bal)
	}
	history, _ := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{})
	if len(history) != 1 {
		t.Errorf("History length after rejection: got %d, want 1", len(history))
	}
}

func TestConcurrentDebits(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Debit(ctx, tokenledger.DebitRequest{
				UserID:    "user-1",
				TokenKind: journal.KindRegular,
				Tokens:    60,
			})
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, tokenledger.ErrInsufficientBalance) {
				t.Fatalf("Unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("Failures: got %d, want exactly 1", failures)
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 40 {
		t.Errorf("Balance: got %d, want 40", bal)
	}
	history, _ := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{})
	if len(history) != 2 {
		t.Errorf("History length: got %d, want 2 (credit plus one debit)", len(history))
	}
}

func TestBalancesAreIndependentPerKind(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)
	mustCredit(t, e, "user-1", journal.KindMail, 10)

	regular, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	mail, _ := e.Balance(ctx, "user-1", journal.KindMail)
	if regular != 100 || mail != 10 {
		t.Errorf("Balances: regular=%d mail=%d", regular, mail)
	}

	if _, err := e.Debit(ctx, tokenledger.DebitRequest{
		UserID:    "user-1",
		TokenKind: journal.KindMail,
		Tokens:    4,
	}); err != nil {
		t.Fatalf("Debit error: %v", err)
	}

	regular, _ = e.Balance(ctx, "user-1", journal.KindRegular)
	mail, _ = e.Balance(ctx, "user-1", journal.KindMail)
	if regular != 100 || mail != 6 {
		t.Errorf("Balances after mail debit: regular=%d mail=%d", regular, mail)
	}
}

func TestDebitForAction(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)

	entry, err := e.DebitForAction(ctx, "user-1", journal.ActionLeadAnalysis, "analyze lien 42")
	if err != nil {
		t.Fatalf("DebitForAction error: %v", err)
	}
	if entry.TokensChanged != -25 {
		t.Errorf("TokensChanged: got %d, want -25", entry.TokensChanged)
	}
	if entry.Action != journal.ActionLeadAnalysis {
		t.Errorf("Action: got %s, want %s", entry.Action, journal.ActionLeadAnalysis)
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 75 {
		t.Errorf("Balance: got %d, want 75", bal)
	}
}

func TestDebitForActionUnpriced(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)

	_, err := e.DebitForAction(ctx, "user-1", "crystal_ball", "")
	if !errors.Is(err, tokenledger.ErrUnknownPricing) {
		t.Fatalf("Got %v, want ErrUnknownPricing", err)
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 100 {
		t.Errorf("Balance after unpriced action: got %d, want 100", bal)
	}
}

func TestStartSeedsDefaultPricing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	rules, err := e.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules error: %v", err)
	}
	if len(rules) != len(pricing.Defaults()) {
		t.Errorf("Rules: got %d, want %d", len(rules), len(pricing.Defaults()))
	}

	rule, err := e.GetRule(ctx, journal.ActionMailSend)
	if err != nil {
		t.Fatalf("GetRule error: %v", err)
	}
	if rule.TokenKind != journal.KindMail || rule.Tokens != 1 {
		t.Errorf("Mail send rule: kind=%s tokens=%d", rule.TokenKind, rule.Tokens)
	}
}

func TestUpsertRuleOverride(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.UpsertRule(ctx, &pricing.Rule{
		Action:    journal.ActionLeadAnalysis,
		TokenKind: journal.KindRegular,
		Tokens:    10,
	}); err != nil {
		t.Fatalf("UpsertRule error: %v", err)
	}

	mustCredit(t, e, "user-1", journal.KindRegular, 100)
	entry, err := e.DebitForAction(ctx, "user-1", journal.ActionLeadAnalysis, "")
	if err != nil {
		t.Fatalf("DebitForAction error: %v", err)
	}
	if entry.TokensChanged != -10 {
		t.Errorf("TokensChanged with override: got %d, want -10", entry.TokensChanged)
	}
}

func TestUpsertRuleValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rule *pricing.Rule
	}{
		{"Missing action", &pricing.Rule{TokenKind: journal.KindRegular, Tokens: 5}},
		{"Zero tokens", &pricing.Rule{Action: "x", TokenKind: journal.KindRegular, Tokens: 0}},
		{"Unknown kind", &pricing.Rule{Action: "x", TokenKind: "stamps", Tokens: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.UpsertRule(ctx, tt.rule); !errors.Is(err, tokenledger.ErrInvalidPricing) {
				t.Errorf("Got %v, want ErrInvalidPricing", err)
			}
		})
	}
}

func TestRefund(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)
	if _, err := e.DebitForAction(ctx, "user-1", journal.ActionSkipTrace, ""); err != nil {
		t.Fatalf("DebitForAction error: %v", err)
	}

	entry, err := e.Refund(ctx, "user-1", journal.KindRegular, 5, "refund_1", "skip trace failed")
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if entry.Kind != journal.TxRefund {
		t.Errorf("Kind: got %s, want %s", entry.Kind, journal.TxRefund)
	}

	bal, _ := e.Balance(ctx, "user-1", journal.KindRegular)
	if bal != 100 {
		t.Errorf("Balance after refund: got %d, want 100", bal)
	}
}

func TestHistoryNewestFirstAndFiltered(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 100)
	if _, err := e.DebitForAction(ctx, "user-1", journal.ActionSkipTrace, ""); err != nil {
		t.Fatalf("DebitForAction error: %v", err)
	}
	if _, err := e.DebitForAction(ctx, "user-1", journal.ActionPropertyReport, ""); err != nil {
		t.Fatalf("DebitForAction error: %v", err)
	}

	history, err := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History length: got %d, want 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.After(history[i-1].CreatedAt) {
			t.Errorf("History not newest first at index %d", i)
		}
	}

	consumptions, err := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{Kind: journal.TxConsumption})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(consumptions) != 2 {
		t.Errorf("Filtered history: got %d, want 2", len(consumptions))
	}

	reports, err := e.History(ctx, "user-1", journal.KindRegular, journal.QueryOpts{Action: journal.ActionPropertyReport})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("Action-filtered history: got %d, want 1", len(reports))
	}
}

// capturePlugin records hook invocations for assertions.
type capturePlugin struct {
	mu           sync.Mutex
	credits      int
	debits       int
	insufficient int
}

func (p *capturePlugin) Name() string { return "capture" }

func (p *capturePlugin) OnCredit(_ context.Context, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credits++
	return nil
}

func (p *capturePlugin) OnDebit(_ context.Context, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debits++
	return nil
}

func (p *capturePlugin) OnInsufficientBalance(_ context.Context, _, _ string, _, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.insufficient++
	return nil
}

func TestPluginHooks(t *testing.T) {
	plug := &capturePlugin{}
	e := newTestEngine(t, tokenledger.WithPlugin(plug))
	ctx := context.Background()

	mustCredit(t, e, "user-1", journal.KindRegular, 50)
	if _, err := e.Debit(ctx, tokenledger.DebitRequest{
		UserID:    "user-1",
		TokenKind: journal.KindRegular,
		Tokens:    20,
	}); err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if _, err := e.Debit(ctx, tokenledger.DebitRequest{
		UserID:    "user-1",
		TokenKind: journal.KindRegular,
		Tokens:    999,
	}); !errors.Is(err, tokenledger.ErrInsufficientBalance) {
		t.Fatalf("Expected insufficient balance, got %v", err)
	}

	plug.mu.Lock()
	defer plug.mu.Unlock()
	if plug.credits != 1 || plug.debits != 1 || plug.insufficient != 1 {
		t.Errorf("Hook counts: credits=%d debits=%d insufficient=%d", plug.credits, plug.debits, plug.insufficient)
	}
}

func mustCredit(t *testing.T, e *tokenledger.Engine, userID string, kind journal.TokenKind, tokens int64) {
	t.Helper()
	if _, err := e.Credit(context.Background(), tokenledger.CreditRequest{
		UserID:    userID,
		TokenKind: kind,
		Kind:      journal.TxPurchase,
		Tokens:    tokens,
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}
}
