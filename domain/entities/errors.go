package entities

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers match with errors.Is.
var (
	// ErrValidation rejects bad input before any mutation
	ErrValidation = errors.New("validation error")

	// ErrInsufficientFunds rejects a debit that would make a balance negative
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound reports an absent account, wager, session or match
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a state clash: duplicate open wager, settled wager,
	// finished session or an account that still has open positions
	ErrConflict = errors.New("conflict")

	// ErrNotResolvableYet is a deferral, not a failure: facts are incomplete
	ErrNotResolvableYet = errors.New("not resolvable yet")

	// ErrExternalProvider aborts one settlement cycle for one match
	ErrExternalProvider = errors.New("external provider error")

	// ErrVoidSettlement marks a market that cannot be judged; the stake is refunded
	ErrVoidSettlement = errors.New("void settlement")
)

// ValidationErrorf wraps ErrValidation with a formatted message
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundErrorf wraps ErrNotFound with a formatted message
func NotFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ConflictErrorf wraps ErrConflict with a formatted message
func ConflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// InsufficientFundsError carries the shortfall of a rejected debit
type InsufficientFundsError struct {
	AccountID int64
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %d: have %d, need %d", e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ProviderError describes a failed fetch from the match-facts provider.
// Temporary errors (timeouts, 429, 5xx) are retried by the scheduler.
type ProviderError struct {
	MatchID    int64
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider request for match %d failed with status %d: %v", e.MatchID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider request for match %d failed: %v", e.MatchID, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrExternalProvider, e.Err}
}

// IsTemporary reports whether err is a provider error worth retrying
func IsTemporary(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Temporary
	}
	return false
}
