package entities

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEntry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   LedgerEntry
		wantErr bool
	}{
		{"credit", LedgerEntry{BalanceBefore: 100, ChangeAmount: 50, BalanceAfter: 150, TransactionType: TransactionTypeDeposit}, false},
		{"debit", LedgerEntry{BalanceBefore: 100, ChangeAmount: -100, BalanceAfter: 0, TransactionType: TransactionTypeBet}, false},
		{"arithmetic mismatch", LedgerEntry{BalanceBefore: 100, ChangeAmount: 50, BalanceAfter: 160, TransactionType: TransactionTypeDeposit}, true},
		{"negative balance", LedgerEntry{BalanceBefore: 10, ChangeAmount: -20, BalanceAfter: -10, TransactionType: TransactionTypeWithdrawal}, true},
		{"zero change", LedgerEntry{BalanceBefore: 10, BalanceAfter: 10, TransactionType: TransactionTypeDeposit}, true},
		{"credit type with negative change", LedgerEntry{BalanceBefore: 100, ChangeAmount: -50, BalanceAfter: 50, TransactionType: TransactionTypeWin}, true},
		{"debit type with positive change", LedgerEntry{BalanceBefore: 100, ChangeAmount: 50, BalanceAfter: 150, TransactionType: TransactionTypePayout}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionType_Direction(t *testing.T) {
	t.Parallel()

	for _, credit := range []TransactionType{TransactionTypeDeposit, TransactionTypeWin, TransactionTypeRefund, TransactionTypeStakeReceived, TransactionTypeReferral, TransactionTypeTransferIn} {
		assert.True(t, credit.IsCredit(), credit)
	}
	for _, debit := range []TransactionType{TransactionTypeWithdrawal, TransactionTypeBet, TransactionTypePayout, TransactionTypeTransferOut} {
		assert.False(t, debit.IsCredit(), debit)
	}
	assert.True(t, TransactionTypeDeposit.IsExternal())
	assert.False(t, TransactionTypeBet.IsExternal())
}

func TestPayoutFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(600), PayoutFor(300, decimal.NewFromInt(2)))
	assert.Equal(t, int64(189), PayoutFor(100, decimal.RequireFromString("1.899")))
	assert.Equal(t, int64(1), PayoutFor(1, decimal.RequireFromString("1.99")))

	w := &Wager{Stake: 300, Odds: decimal.RequireFromString("1.85")}
	assert.Equal(t, int64(555), w.WinPayout())
}

func TestMarketFamilies(t *testing.T) {
	t.Parallel()

	seen := map[MarketType]MarketFamily{}
	for _, family := range AllFamilies {
		assert.True(t, family.IsValid())
		assert.NotEmpty(t, family.Includes())
		for _, market := range family.Markets() {
			_, dup := seen[market]
			assert.False(t, dup, "market %s in two families", market)
			seen[market] = family
			assert.Equal(t, family, market.Family())
		}
	}
	assert.Len(t, seen, 7)
	assert.False(t, MarketFamily("fielding").IsValid())
	assert.Equal(t, MarketFamily(""), MarketType("darts").Family())
}

func TestPlayerRunsPrediction_ThresholdValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"50+", 50, false},
		{" 30 ", 30, false},
		{"0", 0, false},
		{"fifty", 0, true},
		{"-5", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := PlayerRunsPrediction{PlayerID: 1, Threshold: tt.raw}.ThresholdValue()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePrediction(t *testing.T) {
	t.Parallel()

	p, err := DecodePrediction[TeamPrediction](json.RawMessage(`{"team_id": 4, "side": "lay"}`))
	require.NoError(t, err)
	assert.Equal(t, TeamPrediction{TeamID: 4, Side: SideLay}, p)

	_, err = DecodePrediction[TeamPrediction](json.RawMessage(`{"team_id": 4, "extra": true}`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodePrediction[TeamPrediction](nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlayerCountPrediction_SubjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "id:77", PlayerCountPrediction{PlayerID: 77, PlayerName: "ignored"}.SubjectKey())
	assert.Equal(t, "name:virat kohli", PlayerCountPrediction{PlayerName: " Virat Kohli "}.SubjectKey())
}

func TestMatchFacts(t *testing.T) {
	t.Parallel()

	facts := &MatchFacts{
		Status: MatchStatusFinished,
		Runs: []TeamRuns{
			{TeamID: 1, Inning: 1, Score: 180, Wickets: 6},
			{TeamID: 2, Inning: 2, Score: 150, Wickets: 10},
			{TeamID: 1, Inning: 3, Score: 20, Wickets: 1},
		},
		Batting: []BattingEntry{
			{PlayerID: 10, PlayerName: "Opener", TeamID: 1, TeamName: "Lions", Score: 60, Fours: 6, Sixes: 2, Result: "c Smith b Jones"},
			{PlayerID: 11, PlayerName: "Finisher", TeamID: 1, TeamName: "Lions", Score: 40, Fours: 2, Sixes: 3, Result: "not out"},
		},
		Bowling: []BowlingEntry{
			{PlayerID: 20, PlayerName: "Quick", TeamID: 2, TeamName: "Tigers", Runs: 35, Wickets: 3},
		},
	}

	t.Run("status", func(t *testing.T) {
		assert.True(t, facts.IsFinal())
		assert.False(t, facts.IsAbandoned())
		for _, status := range []string{MatchStatusAbandoned, MatchStatusCancelled, MatchStatusPostponed} {
			assert.True(t, (&MatchFacts{Status: status}).IsAbandoned())
		}
	})

	t.Run("team totals", func(t *testing.T) {
		runs, wickets, ok := facts.TeamRunsTotal(1)
		require.True(t, ok)
		assert.Equal(t, 200, runs)
		assert.Equal(t, 7, wickets)

		fours, sixes, ok := facts.TeamBoundaries(1)
		require.True(t, ok)
		assert.Equal(t, 8, fours)
		assert.Equal(t, 5, sixes)

		_, _, ok = (&MatchFacts{}).TeamRunsTotal(1)
		assert.False(t, ok)
		_, _, ok = (&MatchFacts{}).TeamBoundaries(1)
		assert.False(t, ok)
	})

	t.Run("player lookup", func(t *testing.T) {
		batsman := facts.FindBatsman(11, "", "")
		require.NotNil(t, batsman)
		assert.False(t, batsman.IsOut())
		assert.Equal(t, 5, batsman.Boundaries())

		byName := facts.FindBatsman(0, "opener", "LIONS")
		require.NotNil(t, byName)
		assert.True(t, byName.IsOut())

		assert.Nil(t, facts.FindBatsman(0, "opener", "Tigers"))
		assert.Nil(t, facts.FindBatsman(0, "", ""))
		assert.NotNil(t, facts.FindBowler(0, "quick", ""))
		assert.Nil(t, facts.FindBowler(21, "Quick", ""))
	})
}

func TestSettlementSummary_Add(t *testing.T) {
	t.Parallel()

	summary := &SettlementSummary{}
	for _, status := range []SettlementStatus{
		SettlementStatusSettled,
		SettlementStatusSettled,
		SettlementStatusDeferred,
		SettlementStatusSkipped,
		SettlementStatusFailed,
	} {
		summary.Add(WagerSettlement{Status: status})
	}

	assert.Equal(t, 5, summary.Examined)
	assert.Equal(t, 2, summary.Settled)
	assert.Equal(t, 1, summary.Deferred)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Results, 5)
}

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	assert.False(t, NotResolvable("waiting").Resolvable)

	won := Won(600, "toss won")
	assert.True(t, won.Resolvable)
	assert.Equal(t, WagerStateWon, won.Result)
	assert.Equal(t, int64(600), won.Payout)

	assert.Zero(t, Lost("wrong team").Payout)

	void := Void(300, "abandoned")
	assert.Equal(t, WagerStateVoid, void.Result)
	assert.Equal(t, int64(300), void.Payout)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	funds := &InsufficientFundsError{AccountID: 1, Available: 50, Requested: 100}
	assert.ErrorIs(t, funds, ErrInsufficientFunds)
	assert.Contains(t, funds.Error(), "have 50, need 100")

	temporary := &ProviderError{MatchID: 9, StatusCode: 503, Temporary: true, Err: errors.New("busy")}
	assert.ErrorIs(t, temporary, ErrExternalProvider)
	assert.True(t, IsTemporary(temporary))
	assert.False(t, IsTemporary(&ProviderError{MatchID: 9, StatusCode: 404, Err: errors.New("gone")}))
	assert.False(t, IsTemporary(errors.New("plain")))

	assert.ErrorIs(t, ConflictErrorf("x"), ErrConflict)
	assert.ErrorIs(t, NotFoundErrorf("x"), ErrNotFound)
}

func TestSettingsDefaultsValidate(t *testing.T) {
	t.Parallel()

	for _, gameType := range []GameType{GameTypeColor, GameTypeMines, GameTypePlinko} {
		t.Run(string(gameType), func(t *testing.T) {
			raw, err := DefaultSettingsJSON(gameType)
			require.NoError(t, err)
			assert.NoError(t, ValidateSettingsJSON(gameType, raw))
		})
	}

	color := DefaultColorSettings()
	color.NextColor = "purple"
	assert.ErrorIs(t, color.Validate(), ErrValidation)

	plinko := DefaultPlinkoSettings()
	plinko.Rows = 8
	assert.ErrorIs(t, plinko.Validate(), ErrValidation)

	limits := BetLimits{MinBet: 10, MaxBet: 100, Active: true}
	assert.NoError(t, limits.CheckStake(10))
	assert.ErrorIs(t, limits.CheckStake(101), ErrValidation)
	limits.Active = false
	assert.ErrorIs(t, limits.CheckStake(50), ErrConflict)
}
