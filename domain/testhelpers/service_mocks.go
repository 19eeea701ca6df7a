package testhelpers

import (
	"context"
	"encoding/json"

	"betledger/domain/entities"
	"betledger/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) RegisterAccount(ctx context.Context, req interfaces.RegisterAccountRequest) (*entities.Account, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedgerService) DeleteAccount(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockLedgerService) Balance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) Deposit(ctx context.Context, accountID int64, amount int64) (int64, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Withdraw(ctx context.Context, accountID int64, amount int64) (int64, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount int64) (*interfaces.TransferResult, error) {
	args := m.Called(ctx, fromAccountID, toAccountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TransferResult), args.Error(1)
}

// MockWagerService is a mock implementation of WagerService
type MockWagerService struct {
	mock.Mock
}

func (m *MockWagerService) PlaceWager(ctx context.Context, req interfaces.PlaceWagerRequest) (*entities.Wager, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerService) FindPending(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error) {
	args := m.Called(ctx, matchID, markets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerService) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

// MockGameService is a mock implementation of GameService
type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) PlayColor(ctx context.Context, accountID int64, stake int64, color string) (*interfaces.ColorResult, error) {
	args := m.Called(ctx, accountID, stake, color)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ColorResult), args.Error(1)
}

func (m *MockGameService) StartMines(ctx context.Context, accountID int64, stake int64) (*entities.MinesView, error) {
	args := m.Called(ctx, accountID, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesView), args.Error(1)
}

func (m *MockGameService) RevealTile(ctx context.Context, accountID int64, sessionID uuid.UUID, tile int) (*entities.MinesView, error) {
	args := m.Called(ctx, accountID, sessionID, tile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesView), args.Error(1)
}

func (m *MockGameService) CashOut(ctx context.Context, accountID int64, sessionID uuid.UUID) (*entities.MinesView, error) {
	args := m.Called(ctx, accountID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesView), args.Error(1)
}

func (m *MockGameService) DropPlinko(ctx context.Context, accountID int64, stake int64) (*interfaces.PlinkoResult, error) {
	args := m.Called(ctx, accountID, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PlinkoResult), args.Error(1)
}

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Snapshot(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, error) {
	args := m.Called(ctx, gameType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSettings), args.Error(1)
}

func (m *MockSettingsService) UpdateSettings(ctx context.Context, gameType entities.GameType, settings json.RawMessage) (*entities.GameSettings, error) {
	args := m.Called(ctx, gameType, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameSettings), args.Error(1)
}

var (
	_ interfaces.LedgerService   = (*MockLedgerService)(nil)
	_ interfaces.WagerService    = (*MockWagerService)(nil)
	_ interfaces.GameService     = (*MockGameService)(nil)
	_ interfaces.SettingsService = (*MockSettingsService)(nil)
)
