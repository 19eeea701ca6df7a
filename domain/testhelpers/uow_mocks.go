package testhelpers

import (
	"context"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock implementation of UnitOfWork whose repository
// getters return the embedded repository mocks
type MockUnitOfWork struct {
	mock.Mock

	Accounts     *MockAccountRepository
	Ledger       *MockLedgerEntryRepository
	Wagers       *MockWagerRepository
	Sessions     *MockGameSessionRepository
	Settings     *MockGameSettingsRepository
	EventBusMock *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Accounts:     new(MockAccountRepository),
		Ledger:       new(MockLedgerEntryRepository),
		Wagers:       new(MockWagerRepository),
		Sessions:     new(MockGameSessionRepository),
		Settings:     new(MockGameSettingsRepository),
		EventBusMock: new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() interfaces.AccountRepository {
	return m.Accounts
}

func (m *MockUnitOfWork) LedgerEntryRepository() interfaces.LedgerEntryRepository {
	return m.Ledger
}

func (m *MockUnitOfWork) WagerRepository() interfaces.WagerRepository {
	return m.Wagers
}

func (m *MockUnitOfWork) GameSessionRepository() interfaces.GameSessionRepository {
	return m.Sessions
}

func (m *MockUnitOfWork) GameSettingsRepository() interfaces.GameSettingsRepository {
	return m.Settings
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return m.EventBusMock
}

// ExpectTransaction sets Begin and Rollback to succeed and Commit to return commitErr
func (m *MockUnitOfWork) ExpectTransaction(commitErr error) {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Commit").Return(commitErr).Maybe()
	m.On("Rollback").Return(nil).Maybe()
}

// AssertAllExpectations checks the unit of work and every repository mock
func (m *MockUnitOfWork) AssertAllExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.Accounts.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Wagers.AssertExpectations(t)
	m.Sessions.AssertExpectations(t)
	m.Settings.AssertExpectations(t)
	m.EventBusMock.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMatchFactsProvider is a mock implementation of MatchFactsProvider
type MockMatchFactsProvider struct {
	mock.Mock
}

func (m *MockMatchFactsProvider) FetchMatchFacts(ctx context.Context, matchID int64, includes []entities.FactCategory) (*entities.MatchFacts, error) {
	args := m.Called(ctx, matchID, includes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MatchFacts), args.Error(1)
}

// MockAlerter is a mock implementation of Alerter
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Alert(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MockSettingsCache is a mock implementation of SettingsCache
type MockSettingsCache struct {
	mock.Mock
}

func (m *MockSettingsCache) Get(ctx context.Context, gameType entities.GameType) (*entities.GameSettings, bool, error) {
	args := m.Called(ctx, gameType)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.GameSettings), args.Bool(1), args.Error(2)
}

func (m *MockSettingsCache) Set(ctx context.Context, settings *entities.GameSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsCache) Invalidate(ctx context.Context, gameType entities.GameType) error {
	args := m.Called(ctx, gameType)
	return args.Error(0)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Settle(ctx context.Context, matchID int64, family entities.MarketFamily) (*entities.SettlementSummary, error) {
	args := m.Called(ctx, matchID, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementSummary), args.Error(1)
}

func (m *MockSettlementService) SettleAll(ctx context.Context, matchID int64) ([]*entities.SettlementSummary, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SettlementSummary), args.Error(1)
}

func (m *MockSettlementService) TrackedMatches(ctx context.Context, family entities.MarketFamily) ([]int64, error) {
	args := m.Called(ctx, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

var (
	_ interfaces.UnitOfWork         = (*MockUnitOfWork)(nil)
	_ interfaces.UnitOfWorkFactory  = (*MockUnitOfWorkFactory)(nil)
	_ interfaces.EventPublisher     = (*MockEventPublisher)(nil)
	_ interfaces.MatchFactsProvider = (*MockMatchFactsProvider)(nil)
	_ interfaces.Alerter            = (*MockAlerter)(nil)
	_ interfaces.SettingsCache      = (*MockSettingsCache)(nil)
	_ interfaces.SettlementService  = (*MockSettlementService)(nil)
)
