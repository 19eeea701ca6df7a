package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"betledger/database"
	"betledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateFundedAccount inserts an account and deposits balance into it, with
// the matching ledger entry so conservation holds from the first row
func CreateFundedAccount(t *testing.T, db *database.DB, username string, kind entities.AccountKind, balance int64) *entities.Account {
	t.Helper()
	ctx := context.Background()

	account := &entities.Account{Username: username, Kind: kind}
	if kind == entities.AccountKindMember {
		code := fmt.Sprintf("REF-%s", username)
		account.ReferralCode = &code
	}

	err := db.QueryRow(ctx, `
		INSERT INTO accounts (username, kind, referral_code)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, account.Username, account.Kind, account.ReferralCode).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)

	if balance > 0 {
		_, err = db.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, account.ID)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `
			INSERT INTO ledger_entries (account_id, balance_before, balance_after, change_amount, transaction_type)
			VALUES ($1, 0, $2, $2, 'deposit')
		`, account.ID, balance)
		require.NoError(t, err)
		account.Balance = balance
	}

	return account
}

// CreateTestWager builds an unsaved pending wager
func CreateTestWager(accountID, counterpartyID, matchID int64, market entities.MarketType, prediction any, stake int64, odds string) *entities.Wager {
	raw, err := json.Marshal(prediction)
	if err != nil {
		panic(err)
	}
	return &entities.Wager{
		AccountID:      accountID,
		CounterpartyID: counterpartyID,
		MatchID:        matchID,
		MarketType:     market,
		Prediction:     raw,
		Stake:          stake,
		Odds:           decimal.RequireFromString(odds),
		State:          entities.WagerStatePending,
	}
}

// Balance reads an account balance straight from the table
func Balance(t *testing.T, db *database.DB, accountID int64) int64 {
	t.Helper()
	var balance int64
	err := db.QueryRow(context.Background(), `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	require.NoError(t, err)
	return balance
}
