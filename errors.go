package tokenledger

import (
	"errors"
	"fmt"

	"github.com/lienworks/tokenledger/journal"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tokenledger: not found")
	ErrAlreadyExists = errors.New("tokenledger: already exists")
	ErrInvalidInput  = errors.New("tokenledger: invalid input")

	// Journal errors
	ErrInsufficientBalance  = errors.New("tokenledger: insufficient balance")
	ErrInvalidAmount        = errors.New("tokenledger: amount must be positive")
	ErrUnknownTokenKind     = errors.New("tokenledger: unknown token kind")
	ErrDuplicateExternalRef = errors.New("tokenledger: duplicate external reference")
	ErrEntryNotFound        = errors.New("tokenledger: journal entry not found")

	// Pricing errors
	ErrUnknownPricing = errors.New("tokenledger: no pricing rule for action")
	ErrInvalidPricing = errors.New("tokenledger: invalid pricing rule")

	// Package errors
	ErrPackageNotFound  = errors.New("tokenledger: package not found")
	ErrPackageArchived  = errors.New("tokenledger: package is archived")
	ErrPackageNotOnSale = errors.New("tokenledger: package is not on sale")
	ErrPackageInvalid   = errors.New("tokenledger: invalid package definition")

	// Discount errors
	ErrDiscountNotFound    = errors.New("tokenledger: discount code not found")
	ErrDiscountExpired     = errors.New("tokenledger: discount code expired")
	ErrDiscountExhausted   = errors.New("tokenledger: discount code redemptions exhausted")
	ErrDiscountAlreadyUsed = errors.New("tokenledger: discount code already used by this user")
	ErrDiscountNotStarted  = errors.New("tokenledger: discount code not yet valid")

	// Subscription errors
	ErrUnknownTier      = errors.New("tokenledger: no subscription tier for amount")
	ErrInvalidTierTable = errors.New("tokenledger: invalid tier table")
	ErrCurrencyMismatch = errors.New("tokenledger: currency mismatch")
	ErrInvoiceNotCredit = errors.New("tokenledger: invoice amount is not positive")

	// Amortization errors
	ErrScheduleNotFound = errors.New("tokenledger: amortization schedule not found")

	// Store errors
	ErrStoreNotReady     = errors.New("tokenledger: store not ready")
	ErrStoreClosed       = errors.New("tokenledger: store is closed")
	ErrTransactionFailed = errors.New("tokenledger: transaction failed")
	ErrMigrationFailed   = errors.New("tokenledger: migration failed")
)

// InsufficientBalanceError carries the balance context of a rejected debit.
// It unwraps to ErrInsufficientBalance.
type InsufficientBalanceError struct {
	UserID    string
	TokenKind journal.TokenKind
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("tokenledger: insufficient %s balance for user %s: requested %d, available %d",
		e.TokenKind, e.UserID, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tokenledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrPackageNotFound) ||
		errors.Is(err, ErrDiscountNotFound) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrUnknownPricing)
}

// IsInsufficient returns true if the error is a rejected debit.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
