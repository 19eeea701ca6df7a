package services

import (
	"encoding/json"
	"errors"
	"testing"

	"betledger/domain/entities"
	"betledger/domain/testhelpers"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	playerID = int64(1)
	houseID  = int64(99)
)

// newTestUnitOfWork returns a factory that hands out the same mock unit of
// work for every transaction
func newTestUnitOfWork() (*testhelpers.MockUnitOfWorkFactory, *testhelpers.MockUnitOfWork) {
	uow := testhelpers.NewMockUnitOfWork()
	uow.ExpectTransaction(nil)
	return newFactoryFor(uow), uow
}

// newCommitFailingUnitOfWork fails on Commit
func newCommitFailingUnitOfWork() *testhelpers.MockUnitOfWork {
	uow := testhelpers.NewMockUnitOfWork()
	uow.ExpectTransaction(errors.New("connection reset"))
	return uow
}

func newFactoryFor(uow *testhelpers.MockUnitOfWork) *testhelpers.MockUnitOfWorkFactory {
	factory := new(testhelpers.MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	return factory
}

func player(balance int64) *entities.Account {
	return &entities.Account{ID: playerID, Username: "punter", Kind: entities.AccountKindUser, Balance: balance}
}

func house(balance int64) *entities.Account {
	return &entities.Account{ID: houseID, Username: "house", Kind: entities.AccountKindAdmin, Balance: balance}
}

// expectTransfer sets up one locked debit/credit pair
func expectTransfer(uow *testhelpers.MockUnitOfWork, from, to, amount, fromAfter, toAfter int64) {
	uow.Accounts.On("LockForUpdate", mock.Anything, []int64{from, to}).Return(nil).Once()
	uow.Accounts.On("Debit", mock.Anything, from, amount).Return(fromAfter, nil).Once()
	uow.Accounts.On("Credit", mock.Anything, to, amount).Return(toAfter, nil).Once()
}

// expectHold sets up the escrow hold placed on a counterparty
func expectHold(uow *testhelpers.MockUnitOfWork, accountID, amount int64) {
	uow.Accounts.On("Hold", mock.Anything, accountID, amount).Return(nil).Once()
}

// expectRelease sets up the release of a held stake
func expectRelease(uow *testhelpers.MockUnitOfWork, accountID, amount int64) {
	uow.Accounts.On("Release", mock.Anything, accountID, amount).Return(nil).Once()
}

// expectEntry asserts one ledger entry of the given shape is recorded
func expectEntry(uow *testhelpers.MockUnitOfWork, accountID int64, txType entities.TransactionType, change, after int64) {
	uow.Ledger.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.AccountID == accountID &&
			e.TransactionType == txType &&
			e.ChangeAmount == change &&
			e.BalanceAfter == after
	})).Return(nil).Once()
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
