package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"betledger/database"
	"betledger/domain/entities"
)

// LedgerEntryRepository implements the LedgerEntryRepository interface
type LedgerEntryRepository struct {
	q queryable
}

// NewLedgerEntryRepository creates a new ledger entry repository
func NewLedgerEntryRepository(db *database.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{q: db.Pool}
}

// newLedgerEntryRepositoryWithTx creates a new ledger entry repository with a transaction
func newLedgerEntryRepositoryWithTx(tx queryable) *LedgerEntryRepository {
	return &LedgerEntryRepository{q: tx}
}

// Record appends a ledger entry
func (r *LedgerEntryRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger metadata: %w", err)
	}
	if entry.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO ledger_entries
		(account_id, balance_before, balance_after, change_amount, transaction_type, metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.ChangeAmount,
		entry.TransactionType,
		metadataJSON,
		entry.RelatedID,
		entry.RelatedType,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record ledger entry for account %d: %w", entry.AccountID, err)
	}
	return nil
}

// GetByAccount returns an account's newest entries first
func (r *LedgerEntryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount,
		       transaction_type, metadata, related_id, related_type, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for account %d: %w", accountID, err)
	}
	defer rows.Close()

	entries := make([]*entities.LedgerEntry, 0)
	for rows.Next() {
		var entry entities.LedgerEntry
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.TransactionType,
			&metadataJSON,
			&entry.RelatedID,
			&entry.RelatedType,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// SumByAccount sums an account's signed changes; it always equals the balance
func (r *LedgerEntryRepository) SumByAccount(ctx context.Context, accountID int64) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(change_amount), 0)::BIGINT FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger for account %d: %w", accountID, err)
	}
	return sum, nil
}

// NetExternalFlow is deposits minus withdrawals across every account
func (r *LedgerEntryRepository) NetExternalFlow(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(SUM(change_amount), 0)::BIGINT
		FROM ledger_entries
		WHERE transaction_type IN ('deposit', 'withdrawal')
	`

	var net int64
	if err := r.q.QueryRow(ctx, query).Scan(&net); err != nil {
		return 0, fmt.Errorf("failed to sum external flow: %w", err)
	}
	return net, nil
}
