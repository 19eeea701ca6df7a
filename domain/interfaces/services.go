package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"betledger/domain/entities"
	"betledger/domain/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// MatchFactsProvider fetches a normalised facts snapshot for one match.
// Failures are returned as *entities.ProviderError.
type MatchFactsProvider interface {
	FetchMatchFacts(ctx context.Context, matchID int64, includes []entities.FactCategory) (*entities.MatchFacts, error)
}

// Alerter notifies operators about settlement work that was parked
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// SettingsCache is a read-through cache of settings snapshots
type SettingsCache interface {
	Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, bool, error)
	// Set stores a snapshot unless a newer version is already cached
	Set(ctx context.Context, settings *entities.GameSettings) error
	Invalidate(ctx context.Context, gameType entities.GameType) error
}

// RegisterAccountRequest describes a new ledger account
type RegisterAccountRequest struct {
	Username     string               `json:"username"`
	Kind         entities.AccountKind `json:"kind"`
	ReferralCode string               `json:"referral_code,omitempty"`
}

// TransferResult reports a completed account to account transfer
type TransferResult struct {
	FromAccountID int64 `json:"from_account_id"`
	ToAccountID   int64 `json:"to_account_id"`
	Amount        int64 `json:"amount"`
	FromBalance   int64 `json:"from_balance"`
	ToBalance     int64 `json:"to_balance"`
}

// LedgerService defines balance-changing operations. Every mutation appends
// ledger entries in the same transaction.
type LedgerService interface {
	RegisterAccount(ctx context.Context, req RegisterAccountRequest) (*entities.Account, error)
	DeleteAccount(ctx context.Context, accountID int64) error
	Balance(ctx context.Context, accountID int64) (int64, error)
	History(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error)
	Deposit(ctx context.Context, accountID int64, amount int64) (int64, error)
	Withdraw(ctx context.Context, accountID int64, amount int64) (int64, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount int64) (*TransferResult, error)
}

// PlaceWagerRequest is the input of WagerService.PlaceWager
type PlaceWagerRequest struct {
	AccountID  int64               `json:"account_id"`
	MatchID    int64               `json:"match_id"`
	Market     entities.MarketType `json:"market"`
	Prediction json.RawMessage     `json:"prediction"`
	Stake      int64               `json:"stake"`
	Odds       *decimal.Decimal    `json:"odds,omitempty"`
}

// WagerService defines wager placement and queries
type WagerService interface {
	PlaceWager(ctx context.Context, req PlaceWagerRequest) (*entities.Wager, error)
	FindPending(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error)
}

// SettlementService resolves pending wagers against provider facts
type SettlementService interface {
	Settle(ctx context.Context, matchID int64, family entities.MarketFamily) (*entities.SettlementSummary, error)
	SettleAll(ctx context.Context, matchID int64) ([]*entities.SettlementSummary, error)
	TrackedMatches(ctx context.Context, family entities.MarketFamily) ([]int64, error)
}

// ColorResult reports one colour round
type ColorResult struct {
	SessionID uuid.UUID             `json:"session_id"`
	Outcome   entities.ColorOutcome `json:"outcome"`
	Payout    int64                 `json:"payout"`
	Balance   int64                 `json:"balance"`
}

// PlinkoResult reports one plinko drop
type PlinkoResult struct {
	SessionID uuid.UUID              `json:"session_id"`
	Outcome   entities.PlinkoOutcome `json:"outcome"`
	Payout    int64                  `json:"payout"`
	Balance   int64                  `json:"balance"`
}

// GameService plays the mini-games
type GameService interface {
	PlayColor(ctx context.Context, accountID int64, stake int64, color string) (*ColorResult, error)
	StartMines(ctx context.Context, accountID int64, stake int64) (*entities.MinesView, error)
	RevealTile(ctx context.Context, accountID int64, sessionID uuid.UUID, tile int) (*entities.MinesView, error)
	CashOut(ctx context.Context, accountID int64, sessionID uuid.UUID) (*entities.MinesView, error)
	DropPlinko(ctx context.Context, accountID int64, stake int64) (*PlinkoResult, error)
}

// SettingsService serves and updates versioned game settings
type SettingsService interface {
	Snapshot(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error)
	UpdateSettings(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error)
}

// SettlementMetrics records settlement activity
type SettlementMetrics interface {
	RecordWagerSettlement(family entities.MarketFamily, status entities.SettlementStatus)
	RecordSettlementRun(family entities.MarketFamily, duration time.Duration, err error)
}
