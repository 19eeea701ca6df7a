package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"betledger/database"
	"betledger/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `id, username, kind, balance, held, referral_code, referred_by, deleted_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Kind,
		&account.Balance,
		&account.Held,
		&account.ReferralCode,
		&account.ReferredBy,
		&account.DeletedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Create inserts a new account with a zero balance
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (username, kind, referral_code, referred_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, balance, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.Username,
		account.Kind,
		account.ReferralCode,
		account.ReferredBy,
	).Scan(&account.ID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)

	if isUniqueViolation(err) {
		return entities.ConflictErrorf("username %q is taken", account.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to create account %q: %w", account.Username, err)
	}
	return nil
}

// GetByID retrieves an account, soft-deleted or not. Returns nil when absent.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByReferralCode retrieves the live member owning code
func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*entities.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE referral_code = $1 AND kind = 'member' AND deleted_at IS NULL
	`

	account, err := scanAccount(r.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return account, nil
}

// GetHouseAccount returns the live admin with the lowest id
func (r *AccountRepository) GetHouseAccount(ctx context.Context) (*entities.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE kind = 'admin' AND deleted_at IS NULL
		ORDER BY id
		LIMIT 1
	`

	account, err := scanAccount(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get house account: %w", err)
	}
	return account, nil
}

// Debit lowers a live account's balance in a single statement. The guard in
// the WHERE clause only lets it spend what is not held, so overdrafts and
// raids on held stakes are impossible under concurrency.
func (r *AccountRepository) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance - held >= $1 AND deleted_at IS NULL
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.debitFailure(ctx, id, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit account %d: %w", id, err)
	}
	return balance, nil
}

// debitFailure explains why the guarded update matched no row
func (r *AccountRepository) debitFailure(ctx context.Context, id int64, amount int64) error {
	var balance, held int64
	var deletedAt *time.Time
	err := r.q.QueryRow(ctx, `SELECT balance, held, deleted_at FROM accounts WHERE id = $1`, id).Scan(&balance, &held, &deletedAt)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && deletedAt != nil) {
		return entities.NotFoundErrorf("account %d", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read balance of account %d: %w", id, err)
	}
	return &entities.InsufficientFundsError{AccountID: id, Available: balance - held, Requested: amount}
}

// Credit raises a live account's balance in a single statement
func (r *AccountRepository) Credit(ctx context.Context, id int64, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, entities.NotFoundErrorf("account %d", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit account %d: %w", id, err)
	}
	return balance, nil
}

// Hold earmarks amount of a live account's balance for an open position
func (r *AccountRepository) Hold(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE accounts
		SET held = held + $1, updated_at = NOW()
		WHERE id = $2 AND balance - held >= $1 AND deleted_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to hold %d on account %d: %w", amount, id, err)
	}
	if result.RowsAffected() == 0 {
		return r.debitFailure(ctx, id, amount)
	}
	return nil
}

// Release frees a held amount once its position has closed. Deleted accounts
// are included; they can only have been deleted with nothing held.
func (r *AccountRepository) Release(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE accounts
		SET held = held - $1, updated_at = NOW()
		WHERE id = $2 AND held >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to release %d on account %d: %w", amount, id, err)
	}
	if result.RowsAffected() == 0 {
		return entities.ConflictErrorf("account %d does not hold %d", id, amount)
	}
	return nil
}

// LockForUpdate takes row locks on the given accounts in ascending id order
func (r *AccountRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	rows, err := r.q.Query(ctx, `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, sorted)
	if err != nil {
		return fmt.Errorf("failed to lock accounts %v: %w", sorted, err)
	}
	defer rows.Close()

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock accounts %v: %w", sorted, err)
	}
	return nil
}

// SoftDelete marks a live account as deleted
func (r *AccountRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `UPDATE accounts SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return entities.NotFoundErrorf("account %d", id)
	}
	return nil
}

// TotalBalance sums every balance, deleted accounts included
func (r *AccountRepository) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}
