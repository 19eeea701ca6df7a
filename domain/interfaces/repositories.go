package interfaces

import (
	"context"
	"encoding/json"

	"betledger/domain/entities"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// Create inserts a new account and fills its ID and timestamps
	Create(ctx context.Context, account *entities.Account) error

	// GetByID retrieves an account, soft-deleted ones included. Returns nil, nil if absent.
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByReferralCode retrieves the live member owning code. Returns nil, nil if absent.
	GetByReferralCode(ctx context.Context, code string) (*entities.Account, error)

	// GetHouseAccount returns the live admin account with the lowest id, or nil, nil
	GetHouseAccount(ctx context.Context) (*entities.Account, error)

	// Debit atomically subtracts amount from the spendable balance and returns
	// the new balance. Fails with ErrNotFound or *InsufficientFundsError
	// without touching the row.
	Debit(ctx context.Context, id int64, amount int64) (int64, error)

	// Hold earmarks amount of the spendable balance for an open position
	Hold(ctx context.Context, id int64, amount int64) error

	// Release frees a previously held amount
	Release(ctx context.Context, id int64, amount int64) error

	// Credit atomically adds amount and returns the new balance
	Credit(ctx context.Context, id int64, amount int64) (int64, error)

	// LockForUpdate row-locks the accounts in ascending id order
	LockForUpdate(ctx context.Context, ids ...int64) error

	// SoftDelete marks the account deleted
	SoftDelete(ctx context.Context, id int64) error

	// TotalBalance sums every account balance
	TotalBalance(ctx context.Context) (int64, error)
}

// LedgerEntryRepository defines the interface for the append-only ledger
type LedgerEntryRepository interface {
	// Record appends an entry and fills its ID and CreatedAt
	Record(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByAccount returns the newest entries first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error)

	// SumByAccount returns the sum of change_amount for the account
	SumByAccount(ctx context.Context, accountID int64) (int64, error)

	// NetExternalFlow returns deposits minus withdrawals across all accounts
	NetExternalFlow(ctx context.Context) (int64, error)
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// Create inserts a pending wager. A duplicate open subject returns ErrConflict.
	Create(ctx context.Context, wager *entities.Wager) error

	// GetByID retrieves a wager. Returns nil, nil if absent.
	GetByID(ctx context.Context, id int64) (*entities.Wager, error)

	// GetPendingByMatch returns the pending wagers of the markets, ordered by id
	GetPendingByMatch(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error)

	// GetMatchesWithPending returns the distinct matches holding pending wagers of the markets
	GetMatchesWithPending(ctx context.Context, markets []entities.MarketType) ([]int64, error)

	// GetByAccount returns the newest wagers first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error)

	// CountPendingByAccount counts open wagers for the account
	CountPendingByAccount(ctx context.Context, accountID int64) (int, error)

	// Settle moves a pending wager to result. Returns false when the wager
	// was no longer pending.
	Settle(ctx context.Context, id int64, result entities.WagerState, payout int64, reason string) (bool, error)
}

// GameSessionRepository defines the interface for mini-game session data access
type GameSessionRepository interface {
	// Create inserts a session
	Create(ctx context.Context, session *entities.GameSession) error

	// GetByID retrieves a session. Returns nil, nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*entities.GameSession, error)

	// GetByIDForUpdate retrieves and row-locks a session
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GameSession, error)

	// Update persists state, outcome, payout and completion time
	Update(ctx context.Context, session *entities.GameSession) error

	// CountActiveByAccount counts sessions still accepting moves
	CountActiveByAccount(ctx context.Context, accountID int64) (int, error)
}

// GameSettingsRepository defines the interface for versioned settings snapshots
type GameSettingsRepository interface {
	// Get retrieves the current snapshot. Returns nil, nil if absent.
	Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error)

	// Update stores settings as the next version and returns the new snapshot
	Update(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error)
}

// DeadLetterRepository defines the interface for parked settlement work
type DeadLetterRepository interface {
	// Open creates or refreshes the open dead letter for (match, family)
	Open(ctx context.Context, matchID int64, family entities.MarketFamily, failures int, lastError string) (*entities.DeadLetter, error)

	// Resolve closes the open dead letter. Returns false when none was open.
	Resolve(ctx context.Context, matchID int64, family entities.MarketFamily) (bool, error)

	// ListOpen returns every unresolved dead letter
	ListOpen(ctx context.Context) ([]*entities.DeadLetter, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	AccountRepository() AccountRepository
	LedgerEntryRepository() LedgerEntryRepository
	WagerRepository() WagerRepository
	GameSessionRepository() GameSessionRepository
	GameSettingsRepository() GameSettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
