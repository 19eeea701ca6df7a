package entities

import (
	"fmt"
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	// External flows, the only ones that change the system-wide total
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"

	// Player side of a wager or game session
	TransactionTypeBet    TransactionType = "bet"
	TransactionTypeWin    TransactionType = "win"
	TransactionTypeRefund TransactionType = "refund"

	// Counterparty side of a wager or game session
	TransactionTypeStakeReceived TransactionType = "stake_received"
	TransactionTypeReferral      TransactionType = "referral"
	TransactionTypePayout        TransactionType = "payout"

	// Account to account transfers
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

// IsExternal returns true for deposits and withdrawals
func (tt TransactionType) IsExternal() bool {
	return tt == TransactionTypeDeposit || tt == TransactionTypeWithdrawal
}

// IsCredit returns true for types that add to a balance
func (tt TransactionType) IsCredit() bool {
	switch tt {
	case TransactionTypeDeposit, TransactionTypeWin, TransactionTypeRefund,
		TransactionTypeStakeReceived, TransactionTypeReferral, TransactionTypeTransferIn:
		return true
	}
	return false
}

// RelatedType represents what kind of entity related_id refers to
type RelatedType string

const (
	RelatedTypeWager       RelatedType = "wager"
	RelatedTypeGameSession RelatedType = "game_session"
	RelatedTypeTransfer    RelatedType = "transfer"
)

// LedgerEntry is an immutable audit record of one balance change
type LedgerEntry struct {
	ID              int64           `db:"id"`
	AccountID       int64           `db:"account_id"`
	BalanceBefore   int64           `db:"balance_before"`
	BalanceAfter    int64           `db:"balance_after"`
	ChangeAmount    int64           `db:"change_amount"`
	TransactionType TransactionType `db:"transaction_type"`
	Metadata        map[string]any  `db:"metadata"`
	RelatedID       *string         `db:"related_id"`
	RelatedType     *RelatedType    `db:"related_type"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Validate checks the entry's arithmetic and sign against its type
func (e *LedgerEntry) Validate() error {
	if e.BalanceBefore+e.ChangeAmount != e.BalanceAfter {
		return fmt.Errorf("ledger entry arithmetic mismatch: %d + %d != %d", e.BalanceBefore, e.ChangeAmount, e.BalanceAfter)
	}
	if e.BalanceAfter < 0 {
		return fmt.Errorf("ledger entry leaves negative balance %d", e.BalanceAfter)
	}
	if e.ChangeAmount == 0 {
		return fmt.Errorf("ledger entry has zero change")
	}
	if e.TransactionType.IsCredit() != (e.ChangeAmount > 0) {
		return fmt.Errorf("ledger entry sign does not match transaction type %s", e.TransactionType)
	}
	return nil
}

// RelatedTo sets the related entity reference
func (e *LedgerEntry) RelatedTo(relatedType RelatedType, id string) *LedgerEntry {
	e.RelatedType = &relatedType
	e.RelatedID = &id
	return e
}
