// Package tokenledger provides a token and financial ledger engine for CRM
// backends.
//
// The engine is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Per-user, per-kind token balances derived from an append-only journal
//   - Atomic debits with balance checks and idempotent webhook credits
//   - A pricing table mapping billable actions to token costs
//   - Package purchases and banded subscription grants
//   - Loan amortization math on exact decimal arithmetic
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/lienworks/tokenledger"
//	    "github.com/lienworks/tokenledger/store/memory"
//	)
//
//	engine := tokenledger.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// Credit purchased tokens, then spend them on billable actions:
//
//	engine.Credit(ctx, tokenledger.CreditRequest{
//	    UserID:      "user-1",
//	    TokenKind:   journal.KindRegular,
//	    Kind:        journal.TxPurchase,
//	    Tokens:      500,
//	    ExternalRef: "stripe:ch_123",
//	})
//
//	engine.DebitForAction(ctx, "user-1", journal.ActionLeadAnalysis, "lead 42")
//
// # Core Concepts
//
// The journal is the only source of truth: a balance is always the sum of
// entry deltas, never a stored counter. Every entry records the balance
// before and after its delta, so the history is self-auditing. Credits
// carry an external reference that makes gateway webhooks idempotent.
//
// SQLite, PostgreSQL, and MongoDB stores are provided alongside the
// in-memory store; all implement store.Store.
package tokenledger
