package entities

import (
	"time"
)

// AccountKind distinguishes players from the house and from referring members
type AccountKind string

const (
	AccountKindUser   AccountKind = "user"
	AccountKindAdmin  AccountKind = "admin"
	AccountKindMember AccountKind = "member"
)

// IsValid reports whether the kind is one of the known kinds
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindUser, AccountKindAdmin, AccountKindMember:
		return true
	}
	return false
}

// Account holds a ledger balance in minor currency units
type Account struct {
	ID           int64       `db:"id"`
	Username     string      `db:"username"`
	Kind         AccountKind `db:"kind"`
	Balance      int64       `db:"balance"`
	Held         int64       `db:"held"`
	ReferralCode *string     `db:"referral_code"`
	ReferredBy   *int64      `db:"referred_by"`
	DeletedAt    *time.Time  `db:"deleted_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// Available is the part of the balance not held against open positions
func (a *Account) Available() int64 {
	return a.Balance - a.Held
}

// CanAfford reports whether the spendable balance covers amount
func (a *Account) CanAfford(amount int64) bool {
	return a.Available() >= amount
}

// IsDeleted reports whether the account was soft-deleted
func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// ValidateAmount checks a ledger amount is strictly positive
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ValidationErrorf("amount must be positive, got %d", amount)
	}
	return nil
}
