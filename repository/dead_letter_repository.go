package repository

import (
	"context"
	"fmt"

	"betledger/database"
	"betledger/domain/entities"
)

// DeadLetterRepository implements the DeadLetterRepository interface.
// It always runs outside a unit of work: parking a match must survive the
// rollback of the settlement attempt that failed.
type DeadLetterRepository struct {
	q queryable
}

// NewDeadLetterRepository creates a new dead letter repository
func NewDeadLetterRepository(db *database.DB) *DeadLetterRepository {
	return &DeadLetterRepository{q: db.Pool}
}

// Open creates the open dead letter for (match, family) or refreshes it
func (r *DeadLetterRepository) Open(ctx context.Context, matchID int64, family entities.MarketFamily, failures int, lastError string) (*entities.DeadLetter, error) {
	query := `
		INSERT INTO settlement_dead_letters (match_id, family, consecutive_failures, last_error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, family) WHERE resolved_at IS NULL
		DO UPDATE SET consecutive_failures = EXCLUDED.consecutive_failures, last_error = EXCLUDED.last_error
		RETURNING id, match_id, family, consecutive_failures, last_error, created_at, resolved_at
	`

	var letter entities.DeadLetter
	err := r.q.QueryRow(ctx, query, matchID, family, failures, lastError).Scan(
		&letter.ID,
		&letter.MatchID,
		&letter.Family,
		&letter.ConsecutiveFailures,
		&letter.LastError,
		&letter.CreatedAt,
		&letter.ResolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter for match %d (%s): %w", matchID, family, err)
	}
	return &letter, nil
}

// Resolve closes the open dead letter, if any
func (r *DeadLetterRepository) Resolve(ctx context.Context, matchID int64, family entities.MarketFamily) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE settlement_dead_letters
		SET resolved_at = NOW()
		WHERE match_id = $1 AND family = $2 AND resolved_at IS NULL
	`, matchID, family)
	if err != nil {
		return false, fmt.Errorf("failed to resolve dead letter for match %d (%s): %w", matchID, family, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListOpen returns unresolved dead letters, oldest first
func (r *DeadLetterRepository) ListOpen(ctx context.Context) ([]*entities.DeadLetter, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, match_id, family, consecutive_failures, last_error, created_at, resolved_at
		FROM settlement_dead_letters
		WHERE resolved_at IS NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	letters := make([]*entities.DeadLetter, 0)
	for rows.Next() {
		var letter entities.DeadLetter
		err := rows.Scan(
			&letter.ID,
			&letter.MatchID,
			&letter.Family,
			&letter.ConsecutiveFailures,
			&letter.LastError,
			&letter.CreatedAt,
			&letter.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		letters = append(letters, &letter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}
	return letters, nil
}
