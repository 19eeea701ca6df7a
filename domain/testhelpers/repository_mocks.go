package testhelpers

import (
	"context"
	"encoding/json"

	"betledger/domain/entities"
	"betledger/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByReferralCode(ctx context.Context, code string) (*entities.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetHouseAccount(ctx context.Context) (*entities.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Credit(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Hold(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) Release(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, ids ...int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockAccountRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) TotalBalance(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerEntryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) SumByAccount(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerEntryRepository) NetExternalFlow(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*entities.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetPendingByMatch(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error) {
	args := m.Called(ctx, matchID, markets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetMatchesWithPending(ctx context.Context, markets []entities.MarketType) ([]int64, error) {
	args := m.Called(ctx, markets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockWagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) CountPendingByAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockWagerRepository) Settle(ctx context.Context, id int64, result entities.WagerState, payout int64, reason string) (bool, error) {
	args := m.Called(ctx, id, result, payout, reason)
	return args.Bool(0), args.Error(1)
}

// MockGameSessionRepository is a mock implementation of GameSessionRepository
type MockGameSessionRepository struct {
	mock.Mock
}

func (m *MockGameSessionRepository) Create(ctx context.Context, session *entities.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockGameSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) Update(ctx context.Context, session *entities.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockGameSessionRepository) CountActiveByAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

// MockGameSettingsRepository is a mock implementation of GameSettingsRepository
type MockGameSettingsRepository struct {
	mock.Mock
}

func (m *MockGameSettingsRepository) Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error) {
	args := m.Called(ctx, gameType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSettings), args.Error(1)
}

func (m *MockGameSettingsRepository) Update(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error) {
	args := m.Called(ctx, gameType, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSettings), args.Error(1)
}

// MockDeadLetterRepository is a mock implementation of DeadLetterRepository
type MockDeadLetterRepository struct {
	mock.Mock
}

func (m *MockDeadLetterRepository) Open(ctx context.Context, matchID int64, family entities.MarketFamily, failures int, lastError string) (*entities.DeadLetter, error) {
	args := m.Called(ctx, matchID, family, failures, lastError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DeadLetter), args.Error(1)
}

func (m *MockDeadLetterRepository) Resolve(ctx context.Context, matchID int64, family entities.MarketFamily) (bool, error) {
	args := m.Called(ctx, matchID, family)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeadLetterRepository) ListOpen(ctx context.Context) ([]*entities.DeadLetter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DeadLetter), args.Error(1)
}

var (
	_ interfaces.AccountRepository      = (*MockAccountRepository)(nil)
	_ interfaces.LedgerEntryRepository  = (*MockLedgerEntryRepository)(nil)
	_ interfaces.WagerRepository        = (*MockWagerRepository)(nil)
	_ interfaces.GameSessionRepository  = (*MockGameSessionRepository)(nil)
	_ interfaces.GameSettingsRepository = (*MockGameSettingsRepository)(nil)
	_ interfaces.DeadLetterRepository   = (*MockDeadLetterRepository)(nil)
)
