package repository

import (
	"context"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/domain/entities"

	"github.com/jackc/pgx/v5"
)

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

const wagerColumns = `
	id, account_id, counterparty_id, match_id, market_type, prediction, subject_key,
	stake, odds, state, result_checked, payout, settlement_reason, settled_at, created_at
`

func scanWager(row pgx.Row) (*entities.Wager, error) {
	var wager entities.Wager
	var prediction []byte

	err := row.Scan(
		&wager.ID,
		&wager.AccountID,
		&wager.CounterpartyID,
		&wager.MatchID,
		&wager.MarketType,
		&prediction,
		&wager.SubjectKey,
		&wager.Stake,
		&wager.Odds,
		&wager.State,
		&wager.ResultChecked,
		&wager.Payout,
		&wager.SettlementReason,
		&wager.SettledAt,
		&wager.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	wager.Prediction = prediction
	return &wager, nil
}

func (r *WagerRepository) queryWagers(ctx context.Context, query string, args ...any) ([]*entities.Wager, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wagers: %w", err)
	}
	defer rows.Close()

	wagers := make([]*entities.Wager, 0)
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wagers: %w", err)
	}
	return wagers, nil
}

// Create inserts a pending wager
func (r *WagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	query := `
		INSERT INTO wagers (account_id, counterparty_id, match_id, market_type, prediction, subject_key, stake, odds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, state, result_checked, payout, created_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.AccountID,
		wager.CounterpartyID,
		wager.MatchID,
		wager.MarketType,
		string(wager.Prediction),
		wager.SubjectKey,
		wager.Stake,
		wager.Odds,
	).Scan(&wager.ID, &wager.State, &wager.ResultChecked, &wager.Payout, &wager.CreatedAt)

	if isUniqueViolation(err) {
		return entities.ConflictErrorf("an open %s wager on this subject already exists for match %d", wager.MarketType, wager.MatchID)
	}
	if err != nil {
		return fmt.Errorf("failed to create wager: %w", err)
	}
	return nil
}

// GetByID retrieves a wager by ID
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, err)
	}
	return wager, nil
}

// GetPendingByMatch returns the pending wagers of the given markets on a match
func (r *WagerRepository) GetPendingByMatch(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE match_id = $1 AND market_type = ANY($2) AND state = 'pending'
		ORDER BY id
	`
	return r.queryWagers(ctx, query, matchID, stringSlice(markets))
}

// GetMatchesWithPending returns matches that still hold pending wagers of the markets
func (r *WagerRepository) GetMatchesWithPending(ctx context.Context, markets []entities.MarketType) ([]int64, error) {
	query := `
		SELECT DISTINCT match_id
		FROM wagers
		WHERE market_type = ANY($1) AND state = 'pending'
		ORDER BY match_id
	`

	rows, err := r.q.Query(ctx, query, stringSlice(markets))
	if err != nil {
		return nil, fmt.Errorf("failed to get matches with pending wagers: %w", err)
	}
	defer rows.Close()

	matchIDs := make([]int64, 0)
	for rows.Next() {
		var matchID int64
		if err := rows.Scan(&matchID); err != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", err)
		}
		matchIDs = append(matchIDs, matchID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match ids: %w", err)
	}
	return matchIDs, nil
}

// GetByAccount returns an account's most recent wagers
func (r *WagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.queryWagers(ctx, query, accountID, limit)
}

// CountPendingByAccount counts open wagers the account placed or backs as
// counterparty
func (r *WagerRepository) CountPendingByAccount(ctx context.Context, accountID int64) (int, error) {
	query := `SELECT COUNT(*) FROM wagers WHERE (account_id = $1 OR counterparty_id = $1) AND state = 'pending'`

	var count int
	err := r.q.QueryRow(ctx, query, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending wagers for account %d: %w", accountID, err)
	}
	return count, nil
}

// Settle moves a wager out of pending. Only one caller can ever win the
// transition; everyone else gets false.
func (r *WagerRepository) Settle(ctx context.Context, id int64, result entities.WagerState, payout int64, reason string) (bool, error) {
	query := `
		UPDATE wagers
		SET state = $2, result_checked = true, payout = $3, settlement_reason = $4, settled_at = NOW()
		WHERE id = $1 AND state = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, result, payout, reason)
	if err != nil {
		return false, fmt.Errorf("failed to settle wager %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
