// Package journal defines the append-only token ledger entry and its
// enumerated kinds. An Entry is immutable from the moment it is durably
// written; a balance is always derived by summing deltas over the journal,
// never stored as mutable state.
package journal

import (
	"fmt"
	"time"

	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/types"
)

// TokenKind identifies an independent token balance per user.
// The set is open: new kinds can be introduced without schema change.
type TokenKind string

const (
	KindRegular TokenKind = "regular"
	KindMail    TokenKind = "mail"
)

// Valid reports whether the kind is one of the known balances.
func (k TokenKind) Valid() bool {
	return k == KindRegular || k == KindMail
}

// TransactionKind is the business category of a ledger entry.
type TransactionKind string

const (
	TxPurchase          TransactionKind = "purchase"
	TxConsumption       TransactionKind = "consumption"
	TxSubscriptionGrant TransactionKind = "subscription_grant"
	TxRefund            TransactionKind = "refund"
	TxManualAdjustment  TransactionKind = "manual_adjustment"
)

// ActionType names a billable action that consumes tokens.
type ActionType string

const (
	ActionLeadAnalysis   ActionType = "lead_analysis"
	ActionPropertyReport ActionType = "property_report"
	ActionSkipTrace      ActionType = "skip_trace"
	ActionMailSend       ActionType = "mail_send"
)

// Entry is one atomic change to a (user, token-kind) balance.
//
// TokensBefore and TokensAfter record the balance around the delta so the
// journal is self-auditing: TokensAfter must equal TokensBefore +
// TokensChanged, and must equal the running sum of all prior deltas for the
// same (user, token-kind) plus this one.
type Entry struct {
	ID        id.EntryID      `json:"id"`
	UserID    string          `json:"user_id"`
	TokenKind TokenKind       `json:"token_kind"`
	Kind      TransactionKind `json:"kind"`

	// Action is set on consumption entries to name the billable action.
	Action ActionType `json:"action,omitempty"`

	TokensBefore  int64 `json:"tokens_before"`
	TokensChanged int64 `json:"tokens_changed"`
	TokensAfter   int64 `json:"tokens_after"`

	// Monetary fields, present only on purchase and refund entries.
	UnitCost  *types.Money `json:"unit_cost,omitempty"`
	TotalCost *types.Money `json:"total_cost,omitempty"`

	// ExternalRef correlates with an external payment-gateway transaction
	// and is the idempotency key for webhook-driven credits. Unique per
	// (user, token-kind) where non-empty.
	ExternalRef string `json:"external_ref,omitempty"`

	Reason   string            `json:"reason,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the entry's internal invariants before it is appended.
func (e *Entry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("journal: entry missing user id")
	}
	if e.TokenKind == "" {
		return fmt.Errorf("journal: entry missing token kind")
	}
	if e.Kind == "" {
		return fmt.Errorf("journal: entry missing transaction kind")
	}
	if e.TokensChanged == 0 {
		return fmt.Errorf("journal: entry has zero delta")
	}
	if e.TokensAfter != e.TokensBefore+e.TokensChanged {
		return fmt.Errorf("journal: balance chain broken: %d + %d != %d",
			e.TokensBefore, e.TokensChanged, e.TokensAfter)
	}
	return nil
}

// IsCredit reports whether the entry increases the balance.
func (e *Entry) IsCredit() bool { return e.TokensChanged > 0 }

// IsDebit reports whether the entry decreases the balance.
func (e *Entry) IsDebit() bool { return e.TokensChanged < 0 }

// QueryOpts filters journal queries.
type QueryOpts struct {
	Kind   TransactionKind
	Action ActionType
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}
