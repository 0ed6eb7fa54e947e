// Package pricing maps billable actions to token costs.
package pricing

import (
	"github.com/lienworks/tokenledger/id"
	"github.com/lienworks/tokenledger/journal"
	"github.com/lienworks/tokenledger/types"
)

// Rule prices one (action, token-kind) pair. Rules are read-mostly: owned by
// configuration or an admin surface, looked up by the ledger when debiting.
type Rule struct {
	types.Entity
	ID        id.RuleID          `json:"id"`
	Action    journal.ActionType `json:"action"`
	TokenKind journal.TokenKind  `json:"token_kind"`
	Tokens    int64              `json:"tokens"`
}

// Key returns the lookup key for a rule.
func (r *Rule) Key() Key {
	return Key{Action: r.Action, TokenKind: r.TokenKind}
}

// Key identifies a pricing rule by its (action, token-kind) pair.
type Key struct {
	Action    journal.ActionType
	TokenKind journal.TokenKind
}

// Defaults returns the seed pricing table applied on first migration.
// An operator can override any of these through the store.
func Defaults() []*Rule {
	rules := []*Rule{
		{Action: journal.ActionLeadAnalysis, TokenKind: journal.KindRegular, Tokens: 25},
		{Action: journal.ActionPropertyReport, TokenKind: journal.KindRegular, Tokens: 10},
		{Action: journal.ActionSkipTrace, TokenKind: journal.KindRegular, Tokens: 5},
		{Action: journal.ActionMailSend, TokenKind: journal.KindMail, Tokens: 1},
	}
	for _, r := range rules {
		r.ID = id.NewRuleID()
		r.Entity = types.NewEntity()
	}
	return rules
}
