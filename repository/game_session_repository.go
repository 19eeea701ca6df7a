package repository

import (
	"context"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GameSessionRepository implements the GameSessionRepository interface
type GameSessionRepository struct {
	q queryable
}

// NewGameSessionRepository creates a new game session repository
func NewGameSessionRepository(db *database.DB) *GameSessionRepository {
	return &GameSessionRepository{q: db.Pool}
}

// newGameSessionRepositoryWithTx creates a new game session repository with a transaction
func newGameSessionRepositoryWithTx(tx queryable) *GameSessionRepository {
	return &GameSessionRepository{q: tx}
}

const sessionColumns = `
	id, account_id, counterparty_id, game_type, stake, state, outcome,
	seed, settings_version, payout, created_at, completed_at
`

// Create inserts a session
func (r *GameSessionRepository) Create(ctx context.Context, session *entities.GameSession) error {
	query := `
		INSERT INTO game_sessions
		(id, account_id, counterparty_id, game_type, stake, state, outcome, seed, settings_version, payout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.AccountID,
		session.CounterpartyID,
		session.GameType,
		session.Stake,
		session.State,
		string(session.Outcome),
		session.Seed,
		session.SettingsVersion,
		session.Payout,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create %s session: %w", session.GameType, err)
	}
	return nil
}

// GetByID retrieves a session by ID
func (r *GameSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GameSession, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a session and holds its row lock until the transaction ends
func (r *GameSessionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GameSession, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *GameSessionRepository) get(ctx context.Context, query string, id uuid.UUID) (*entities.GameSession, error) {
	var session entities.GameSession
	var outcome []byte

	err := r.q.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.AccountID,
		&session.CounterpartyID,
		&session.GameType,
		&session.Stake,
		&session.State,
		&outcome,
		&session.Seed,
		&session.SettingsVersion,
		&session.Payout,
		&session.CreatedAt,
		&session.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session %s: %w", id, err)
	}

	session.Outcome = outcome
	return &session, nil
}

// Update persists the mutable part of a session
func (r *GameSessionRepository) Update(ctx context.Context, session *entities.GameSession) error {
	query := `
		UPDATE game_sessions
		SET state = $2, outcome = $3, payout = $4, completed_at = $5
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		session.ID,
		session.State,
		string(session.Outcome),
		session.Payout,
		session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update game session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.NotFoundErrorf("game session %s", session.ID)
	}
	return nil
}

// CountActiveByAccount counts unfinished sessions the account plays or backs
func (r *GameSessionRepository) CountActiveByAccount(ctx context.Context, accountID int64) (int, error) {
	query := `SELECT COUNT(*) FROM game_sessions WHERE (account_id = $1 OR counterparty_id = $1) AND state = 'active'`

	var count int
	err := r.q.QueryRow(ctx, query, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions for account %d: %w", accountID, err)
	}
	return count, nil
}
