package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a mini-game session
type SessionState string

const (
	SessionStateActive    SessionState = "active"
	SessionStateCompleted SessionState = "completed"
	SessionStateCashedOut SessionState = "cashed_out"
	SessionStateLost      SessionState = "lost"
)

// GameSession is one staked play of a mini-game
type GameSession struct {
	ID              uuid.UUID       `db:"id"`
	AccountID       int64           `db:"account_id"`
	CounterpartyID  int64           `db:"counterparty_id"`
	GameType        GameType        `db:"game_type"`
	Stake           int64           `db:"stake"`
	State           SessionState    `db:"state"`
	Outcome         json.RawMessage `db:"outcome"`
	Seed            []byte          `db:"seed"`
	SettingsVersion int64           `db:"settings_version"`
	Payout          int64           `db:"payout"`
	CreatedAt       time.Time       `db:"created_at"`
	CompletedAt     *time.Time      `db:"completed_at"`
}

// IsActive returns true while the session accepts moves
func (s *GameSession) IsActive() bool {
	return s.State == SessionStateActive
}

// ColorOutcome is the stored result of a colour round
type ColorOutcome struct {
	Selected string `json:"selected"`
	Drawn    string `json:"drawn"`
	Won      bool   `json:"won"`
}

// MinesOutcome is the evolving state of a mines board
type MinesOutcome struct {
	GridSize            int    `json:"grid_size"`
	Bombs               []int  `json:"bombs"`
	Revealed            []int  `json:"revealed"`
	BaseMultiplier      string `json:"base_multiplier"`
	MultiplierIncrement string `json:"multiplier_increment"`
	CurrentMultiplier   string `json:"current_multiplier"`
	HitBomb             *int   `json:"hit_bomb,omitempty"`
}

// PlinkoOutcome is the stored path of one ball
type PlinkoOutcome struct {
	Path       []int  `json:"path"`
	FinalSlot  int    `json:"final_slot"`
	Multiplier string `json:"multiplier"`
}

// MinesView is what a player may see of an active board: bombs stay hidden
type MinesView struct {
	SessionID         uuid.UUID    `json:"session_id"`
	State             SessionState `json:"state"`
	GridSize          int          `json:"grid_size"`
	Revealed          []int        `json:"revealed"`
	CurrentMultiplier string       `json:"current_multiplier"`
	Payout            int64        `json:"payout"`
	Bombs             []int        `json:"bombs,omitempty"`
}
