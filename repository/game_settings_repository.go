package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"betledger/database"
	"betledger/domain/entities"

	"github.com/jackc/pgx/v5"
)

// GameSettingsRepository implements the GameSettingsRepository interface
type GameSettingsRepository struct {
	q queryable
}

// NewGameSettingsRepository creates a new game settings repository
func NewGameSettingsRepository(db *database.DB) *GameSettingsRepository {
	return &GameSettingsRepository{q: db.Pool}
}

// newGameSettingsRepositoryWithTx creates a new game settings repository with a transaction
func newGameSettingsRepositoryWithTx(tx queryable) *GameSettingsRepository {
	return &GameSettingsRepository{q: tx}
}

// Get retrieves the current settings snapshot of a game
func (r *GameSettingsRepository) Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error) {
	query := `SELECT game_type, version, settings, updated_at FROM game_settings WHERE game_type = $1`

	snapshot, err := scanSettings(r.q.QueryRow(ctx, query, gameType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s settings: %w", gameType, err)
	}
	return snapshot, nil
}

// Update replaces the settings and bumps the version
func (r *GameSettingsRepository) Update(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error) {
	query := `
		UPDATE game_settings
		SET settings = $2, version = version + 1, updated_at = NOW()
		WHERE game_type = $1
		RETURNING game_type, version, settings, updated_at
	`

	snapshot, err := scanSettings(r.q.QueryRow(ctx, query, gameType, string(settings)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.NotFoundErrorf("settings for game %s", gameType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s settings: %w", gameType, err)
	}
	return snapshot, nil
}

func scanSettings(row pgx.Row) (*entities.GameSettings, error) {
	var snapshot entities.GameSettings
	var settings []byte
	if err := row.Scan(&snapshot.GameType, &snapshot.Version, &settings, &snapshot.UpdatedAt); err != nil {
		return nil, err
	}
	snapshot.Settings = settings
	return &snapshot, nil
}
