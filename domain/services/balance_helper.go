package services

import (
	"context"
	"fmt"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"
)

// RecordBalanceChange records a ledger entry and emits a balance change event.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow interfaces.UnitOfWork, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("refusing to record ledger entry: %w", err)
	}

	if err := uow.LedgerEntryRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	// Emitted once the transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       entry.AccountID,
		OldBalance:      entry.BalanceBefore,
		NewBalance:      entry.BalanceAfter,
		TransactionType: entry.TransactionType,
		ChangeAmount:    entry.ChangeAmount,
	})

	return nil
}

// ledgerMove is one side of a balance change
type ledgerMove struct {
	AccountID   int64
	Amount      int64
	Type        entities.TransactionType
	Metadata    map[string]any
	RelatedType entities.RelatedType
	RelatedID   string
}

func (m ledgerMove) entry(before, after, change int64) *entities.LedgerEntry {
	entry := &entities.LedgerEntry{
		AccountID:       m.AccountID,
		BalanceBefore:   before,
		BalanceAfter:    after,
		ChangeAmount:    change,
		TransactionType: m.Type,
		Metadata:        m.Metadata,
	}
	if m.RelatedType != "" {
		entry.RelatedTo(m.RelatedType, m.RelatedID)
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	return entry
}

// debit atomically lowers a balance and records the entry
func debit(ctx context.Context, uow interfaces.UnitOfWork, move ledgerMove) (*entities.LedgerEntry, error) {
	if err := entities.ValidateAmount(move.Amount); err != nil {
		return nil, err
	}
	after, err := uow.AccountRepository().Debit(ctx, move.AccountID, move.Amount)
	if err != nil {
		return nil, err
	}
	entry := move.entry(after+move.Amount, after, -move.Amount)
	if err := RecordBalanceChange(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// credit atomically raises a balance and records the entry
func credit(ctx context.Context, uow interfaces.UnitOfWork, move ledgerMove) (*entities.LedgerEntry, error) {
	if err := entities.ValidateAmount(move.Amount); err != nil {
		return nil, err
	}
	after, err := uow.AccountRepository().Credit(ctx, move.AccountID, move.Amount)
	if err != nil {
		return nil, err
	}
	entry := move.entry(after-move.Amount, after, move.Amount)
	if err := RecordBalanceChange(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// transfer moves from.Amount between two accounts inside the caller's
// transaction. Rows are locked in ascending id order first so opposing
// transfers cannot deadlock.
func transfer(ctx context.Context, uow interfaces.UnitOfWork, from, to ledgerMove) (*entities.LedgerEntry, *entities.LedgerEntry, error) {
	if from.AccountID == to.AccountID {
		return nil, nil, entities.ValidationErrorf("cannot transfer to the same account")
	}
	if from.Amount != to.Amount {
		return nil, nil, fmt.Errorf("transfer legs disagree: %d != %d", from.Amount, to.Amount)
	}
	if err := uow.AccountRepository().LockForUpdate(ctx, from.AccountID, to.AccountID); err != nil {
		return nil, nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	out, err := debit(ctx, uow, from)
	if err != nil {
		return nil, nil, err
	}
	in, err := credit(ctx, uow, to)
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// escrow moves a stake to the counterparty and holds it there until the
// position closes, so the counterparty cannot spend it in the meantime
func escrow(ctx context.Context, uow interfaces.UnitOfWork, from, to ledgerMove) (*entities.LedgerEntry, error) {
	out, _, err := transfer(ctx, uow, from, to)
	if err != nil {
		return nil, err
	}
	if err := uow.AccountRepository().Hold(ctx, to.AccountID, to.Amount); err != nil {
		return nil, fmt.Errorf("failed to hold stake: %w", err)
	}
	return out, nil
}

// release frees a stake held by escrow. It must run before any payout from
// the same counterparty in the transaction.
func release(ctx context.Context, uow interfaces.UnitOfWork, counterpartyID, stake int64) error {
	if err := uow.AccountRepository().Release(ctx, counterpartyID, stake); err != nil {
		return fmt.Errorf("failed to release stake: %w", err)
	}
	return nil
}

// requireLiveAccount loads an account and maps absence to ErrNotFound
func requireLiveAccount(ctx context.Context, uow interfaces.UnitOfWork, accountID int64) (*entities.Account, error) {
	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil || account.IsDeleted() {
		return nil, entities.NotFoundErrorf("account %d", accountID)
	}
	return account, nil
}
