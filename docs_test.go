package tokenledger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	tokenledger "github.com/lienworks/tokenledger"
	"github.com/lienworks/tokenledger/amortize"
	"github.com/lienworks/tokenledger/catalog"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/store/memory"
	"github.com/lienworks/tokenledger/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	// Quick Start example.
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		engine := tokenledger.New(store,
			tokenledger.WithLogger(slog.New(slog.DiscardHandler)),
		)

		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop() //nolint:errcheck // test teardown

		// Credit purchased tokens.
		if _, err := engine.Credit(ctx, tokenledger.CreditRequest{
			UserID:      "user-1",
			TokenKind:   journal.KindRegular,
			Kind:        journal.TxPurchase,
			Tokens:      500,
			ExternalRef: "stripe:ch_123",
		}); err != nil {
			t.Fatal(err)
		}

		// Spend them on a billable action.
		if _, err := engine.DebitForAction(ctx, "user-1", journal.ActionLeadAnalysis, "lead 42"); err != nil {
			t.Fatal(err)
		}

		bal, err := engine.Balance(ctx, "user-1", journal.KindRegular)
		if err != nil {
			t.Fatal(err)
		}
		if bal != 475 {
			t.Errorf("Balance: got %d, want 475", bal)
		}
	})

	// A package purchase end to end: define a bundle, buy it through a
	// gateway webhook, then consume the tokens.
	t.Run("PackagePurchaseExample", func(t *testing.T) {
		engine := tokenledger.New(memory.New(),
			tokenledger.WithLogger(slog.New(slog.DiscardHandler)),
		)
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop() //nolint:errcheck // test teardown

		if err := engine.CreatePackage(ctx, &catalog.Package{
			Name:  "Investor Bundle",
			Slug:  "investor-bundle",
			Price: types.USD("99.00"),
			Grants: []catalog.Grant{
				{TokenKind: journal.KindRegular, Tokens: 250, Bonus: 50},
				{TokenKind: journal.KindMail, Tokens: 25},
			},
		}); err != nil {
			t.Fatal(err)
		}

		result, err := engine.PurchasePackage(ctx, "user-1", "investor-bundle", "ch_900", tokenledger.PurchaseOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Entries) != 2 {
			t.Fatalf("Entries: got %d, want 2", len(result.Entries))
		}

		if _, err := engine.DebitForAction(ctx, "user-1", journal.ActionMailSend, "campaign 7"); err != nil {
			t.Fatal(err)
		}
		mail, _ := engine.Balance(ctx, "user-1", journal.KindMail)
		if mail != 24 {
			t.Errorf("Mail balance: got %d, want 24", mail)
		}
	})

	// Amortization example: generate, persist, and retrieve a schedule.
	t.Run("AmortizationExample", func(t *testing.T) {
		engine := tokenledger.New(memory.New(),
			tokenledger.WithLogger(slog.New(slog.DiscardHandler)),
		)
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop() //nolint:errcheck // test teardown

		params := amortize.LoanParameters{
			Principal:     types.USD("80000.00"),
			AnnualRate:    decimal.RequireFromString("0.075"),
			TermMonths:    360,
			PropertyValue: types.USD("100000.00"),
		}

		if report := engine.ValidateLoan(params); !report.IsValid {
			t.Fatalf("loan rejected: %v", report.Errors)
		}

		sched, err := engine.GenerateSchedule(ctx, "user-1", "lien-42", params)
		if err != nil {
			t.Fatal(err)
		}
		if len(sched.Entries) != 360 {
			t.Fatalf("Entries: got %d, want 360", len(sched.Entries))
		}

		stored, err := engine.GetScheduleByRef(ctx, "user-1", "lien-42")
		if err != nil {
			t.Fatal(err)
		}
		if stored.ID.String() != sched.ID.String() {
			t.Errorf("Stored schedule mismatch: %s vs %s", stored.ID, sched.ID)
		}
	})
}
