package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"betledger/domain/entities"
	"betledger/domain/interfaces"
	"betledger/domain/testhelpers"
	"betledger/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubAuditor struct {
	report *repository.ConservationReport
	err    error
}

func (s stubAuditor) CheckConservation(ctx context.Context) (*repository.ConservationReport, error) {
	return s.report, s.err
}

type stubHealth struct{ err error }

func (s stubHealth) Healthy(ctx context.Context) error { return s.err }

type apiFixture struct {
	ledger      *testhelpers.MockLedgerService
	wagers      *testhelpers.MockWagerService
	settlement  *testhelpers.MockSettlementService
	games       *testhelpers.MockGameService
	settings    *testhelpers.MockSettingsService
	deadLetters *testhelpers.MockDeadLetterRepository
	router      http.Handler
}

func newAPIFixture(health error) *apiFixture {
	f := &apiFixture{
		ledger:      new(testhelpers.MockLedgerService),
		wagers:      new(testhelpers.MockWagerService),
		settlement:  new(testhelpers.MockSettlementService),
		games:       new(testhelpers.MockGameService),
		settings:    new(testhelpers.MockSettingsService),
		deadLetters: new(testhelpers.MockDeadLetterRepository),
	}
	f.router = NewRouter(Dependencies{
		Ledger:      f.ledger,
		Wagers:      f.wagers,
		Settlement:  f.settlement,
		Games:       f.games,
		Settings:    f.settings,
		Audit:       stubAuditor{report: &repository.ConservationReport{TotalBalance: 500, NetExternalFlow: 500, Balanced: true}},
		DeadLetters: f.deadLetters,
		Health:      stubHealth{err: health},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
	return f
}

func (f *apiFixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", entities.ValidationErrorf("amount must be positive"), http.StatusBadRequest},
		{"insufficient funds", &entities.InsufficientFundsError{AccountID: 1, Available: 50, Requested: 100}, http.StatusUnprocessableEntity},
		{"wrapped insufficient funds", fmt.Errorf("failed to debit: %w", entities.ErrInsufficientFunds), http.StatusUnprocessableEntity},
		{"not found", entities.NotFoundErrorf("account %d not found", 1), http.StatusNotFound},
		{"conflict", entities.ConflictErrorf("account has open wagers"), http.StatusConflict},
		{"provider", &entities.ProviderError{MatchID: 1, StatusCode: 500, Temporary: true, Err: errors.New("boom")}, http.StatusBadGateway},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newAPIFixture(nil)
			f.ledger.On("Withdraw", mock.Anything, int64(1), int64(100)).Return(int64(0), tt.err)

			rec := f.do(http.MethodPost, "/accounts/1/withdraw", `{"amount": 100}`)
			assert.Equal(t, tt.status, rec.Code)

			body := decodeBody[map[string]any](t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			}
		})
	}
}

func TestInsufficientFundsBody(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(nil)
	f.ledger.On("Withdraw", mock.Anything, int64(1), int64(100)).
		Return(int64(0), &entities.InsufficientFundsError{AccountID: 1, Available: 50, Requested: 100})

	rec := f.do(http.MethodPost, "/accounts/1/withdraw", `{"amount": 100}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 50, body["available"])
	assert.EqualValues(t, 100, body["requested"])
}

func TestLedgerRoutes(t *testing.T) {
	t.Parallel()

	t.Run("register", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.ledger.On("RegisterAccount", mock.Anything, interfaces.RegisterAccountRequest{Username: "alice", Kind: entities.AccountKindUser}).
			Return(&entities.Account{ID: 7, Username: "alice", Kind: entities.AccountKindUser}, nil)

		rec := f.do(http.MethodPost, "/accounts", `{"username": "alice", "kind": "user"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		account := decodeBody[AccountDTO](t, rec)
		assert.Equal(t, int64(7), account.ID)
		assert.Equal(t, "user", account.Kind)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		rec := f.do(http.MethodPost, "/accounts", `{"username": "alice", "balance": 1000000}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.ledger.AssertNotCalled(t, "RegisterAccount", mock.Anything, mock.Anything)
	})

	t.Run("balance", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.ledger.On("Balance", mock.Anything, int64(3)).Return(int64(1250), nil)

		rec := f.do(http.MethodGet, "/accounts/3/balance", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, balanceResponse{AccountID: 3, Balance: 1250}, decodeBody[balanceResponse](t, rec))
	})

	t.Run("invalid account id", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/accounts/abc/balance", "").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/accounts/0/balance", "").Code)
	})

	t.Run("deposit", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.ledger.On("Deposit", mock.Anything, int64(3), int64(500)).Return(int64(1500), nil)

		rec := f.do(http.MethodPost, "/accounts/3/deposit", `{"amount": 500}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1500), decodeBody[balanceResponse](t, rec).Balance)
	})

	t.Run("transfer", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.ledger.On("Transfer", mock.Anything, int64(3), int64(4), int64(200)).
			Return(&interfaces.TransferResult{FromAccountID: 3, ToAccountID: 4, Amount: 200, FromBalance: 800, ToBalance: 200}, nil)

		rec := f.do(http.MethodPost, "/accounts/3/transfer", `{"to_account_id": 4, "amount": 200}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(800), decodeBody[interfaces.TransferResult](t, rec).FromBalance)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.ledger.On("DeleteAccount", mock.Anything, int64(3)).Return(nil)

		rec := f.do(http.MethodDelete, "/accounts/3", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("history honours limit", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		related := entities.RelatedTypeWager
		f.ledger.On("History", mock.Anything, int64(3), 2).Return([]*entities.LedgerEntry{
			{ID: 2, BalanceBefore: 1000, BalanceAfter: 900, ChangeAmount: -100, TransactionType: entities.TransactionTypeBet, RelatedType: &related},
			{ID: 1, BalanceBefore: 0, BalanceAfter: 1000, ChangeAmount: 1000, TransactionType: entities.TransactionTypeDeposit},
		}, nil)

		rec := f.do(http.MethodGet, "/accounts/3/ledger?limit=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decodeBody[[]LedgerEntryDTO](t, rec)
		require.Len(t, entries, 2)
		assert.Equal(t, "bet", entries[0].TransactionType)
		require.NotNil(t, entries[0].RelatedType)
		assert.Equal(t, "wager", *entries[0].RelatedType)
	})

	t.Run("bad limit", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/accounts/3/ledger?limit=-1", "").Code)
	})

	t.Run("audit", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		rec := f.do(http.MethodGet, "/ledger/audit", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[repository.ConservationReport](t, rec).Balanced)
	})
}

func TestWagerRoutes(t *testing.T) {
	t.Parallel()

	t.Run("place wager", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.wagers.On("PlaceWager", mock.Anything, mock.MatchedBy(func(req interfaces.PlaceWagerRequest) bool {
			return req.AccountID == 3 && req.MatchID == 99 && req.Market == entities.MarketToss && req.Stake == 300
		})).Return(&entities.Wager{
			ID: 11, AccountID: 3, CounterpartyID: 1, MatchID: 99, MarketType: entities.MarketToss,
			Prediction: json.RawMessage(`{"team_id": 5}`), Stake: 300, Odds: decimal.RequireFromString("2"),
			State: entities.WagerStatePending,
		}, nil)

		rec := f.do(http.MethodPost, "/wagers", `{"account_id": 3, "match_id": 99, "market": "toss", "prediction": {"team_id": 5}, "stake": 300}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		wager := decodeBody[WagerDTO](t, rec)
		assert.Equal(t, "pending", wager.State)
		assert.Equal(t, "2", wager.Odds)
		assert.JSONEq(t, `{"team_id": 5}`, string(wager.Prediction))
	})

	t.Run("list wagers", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.wagers.On("ListByAccount", mock.Anything, int64(3), 50).Return([]*entities.Wager{}, nil)

		rec := f.do(http.MethodGet, "/accounts/3/wagers", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("settle one family", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.settlement.On("Settle", mock.Anything, int64(99), entities.FamilyBatting).
			Return(&entities.SettlementSummary{MatchID: 99, Family: entities.FamilyBatting, Examined: 2, Settled: 2}, nil)

		rec := f.do(http.MethodPost, "/matches/99/settle?family=batting", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[settleResponse](t, rec)
		require.Len(t, resp.Summaries, 1)
		assert.Equal(t, 2, resp.Summaries[0].Settled)
	})

	t.Run("settle all reports partial failure", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.settlement.On("SettleAll", mock.Anything, int64(99)).Return([]*entities.SettlementSummary{
			{MatchID: 99, Family: entities.FamilyMatchResult},
		}, errors.New("batting: provider down"))

		rec := f.do(http.MethodPost, "/matches/99/settle", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[settleResponse](t, rec)
		assert.Len(t, resp.Summaries, 1)
		assert.Contains(t, resp.Error, "provider down")
	})

	t.Run("settle provider failure", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.settlement.On("Settle", mock.Anything, int64(99), entities.FamilyBowling).
			Return(nil, &entities.ProviderError{MatchID: 99, StatusCode: 503, Temporary: true, Err: errors.New("unavailable")})

		rec := f.do(http.MethodPost, "/matches/99/settle?family=bowling", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("dead letters", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.deadLetters.On("ListOpen", mock.Anything).Return([]*entities.DeadLetter{
			{ID: 1, MatchID: 42, Family: entities.FamilyBatting, ConsecutiveFailures: 5, LastError: "timeout", CreatedAt: time.Now()},
		}, nil)

		rec := f.do(http.MethodGet, "/settlement/dead-letters", "")
		require.Equal(t, http.StatusOK, rec.Code)
		letters := decodeBody[[]DeadLetterDTO](t, rec)
		require.Len(t, letters, 1)
		assert.Equal(t, "batting", letters[0].Family)
	})
}

func TestGameRoutes(t *testing.T) {
	t.Parallel()

	t.Run("color requires acting account", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		rec := f.do(http.MethodPost, "/games/color/bet", `{"stake": 100, "color": "red"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("color bet", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.games.On("PlayColor", mock.Anything, int64(3), int64(100), "red").Return(&interfaces.ColorResult{
			SessionID: uuid.New(),
			Outcome:   entities.ColorOutcome{Selected: "red", Drawn: "red", Won: true},
			Payout:    200,
			Balance:   1100,
		}, nil)

		rec := f.do(http.MethodPost, "/games/color/bet", `{"stake": 100, "color": "red"}`, accountIDHeader, "3")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(200), decodeBody[interfaces.ColorResult](t, rec).Payout)
	})

	t.Run("mines lifecycle", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		sessionID := uuid.New()
		f.games.On("StartMines", mock.Anything, int64(3), int64(100)).
			Return(&entities.MinesView{SessionID: sessionID, State: entities.SessionStateActive, GridSize: 5, CurrentMultiplier: "1"}, nil)
		f.games.On("RevealTile", mock.Anything, int64(3), sessionID, 7).
			Return(&entities.MinesView{SessionID: sessionID, State: entities.SessionStateActive, Revealed: []int{7}, CurrentMultiplier: "1.2"}, nil)
		f.games.On("CashOut", mock.Anything, int64(3), sessionID).
			Return(&entities.MinesView{SessionID: sessionID, State: entities.SessionStateCashedOut, Payout: 120}, nil)

		rec := f.do(http.MethodPost, "/games/mines/start", `{"stake": 100}`, accountIDHeader, "3")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = f.do(http.MethodPost, "/games/mines/"+sessionID.String()+"/reveal", `{"tile": 7}`, accountIDHeader, "3")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1.2", decodeBody[entities.MinesView](t, rec).CurrentMultiplier)

		rec = f.do(http.MethodPost, "/games/mines/"+sessionID.String()+"/cashout", "", accountIDHeader, "3")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(120), decodeBody[entities.MinesView](t, rec).Payout)
	})

	t.Run("mines bad session id", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		rec := f.do(http.MethodPost, "/games/mines/not-a-uuid/cashout", "", accountIDHeader, "3")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("finished session conflicts", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		sessionID := uuid.New()
		f.games.On("CashOut", mock.Anything, int64(3), sessionID).Return(nil, entities.ConflictErrorf("session is not active"))

		rec := f.do(http.MethodPost, "/games/mines/"+sessionID.String()+"/cashout", "", accountIDHeader, "3")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("plinko", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.games.On("DropPlinko", mock.Anything, int64(3), int64(50)).Return(&interfaces.PlinkoResult{
			SessionID: uuid.New(),
			Outcome:   entities.PlinkoOutcome{Path: []int{0, 1}, FinalSlot: 8, Multiplier: "0.5"},
			Payout:    25,
		}, nil)

		rec := f.do(http.MethodPost, "/games/plinko/drop", `{"stake": 50}`, accountIDHeader, "3")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 8, decodeBody[interfaces.PlinkoResult](t, rec).Outcome.FinalSlot)
	})

	t.Run("settings", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		f.settings.On("Snapshot", mock.Anything, entities.GameTypeColor).
			Return(&entities.GameSettings{GameType: entities.GameTypeColor, Version: 1, Settings: json.RawMessage(`{"next_color": "random"}`)}, nil)
		f.settings.On("UpdateSettings", mock.Anything, entities.GameTypeColor, mock.MatchedBy(func(raw json.RawMessage) bool {
			return strings.Contains(string(raw), `"green"`)
		})).Return(&entities.GameSettings{GameType: entities.GameTypeColor, Version: 2, Settings: json.RawMessage(`{"next_color": "green"}`)}, nil)

		rec := f.do(http.MethodGet, "/games/color/settings", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decodeBody[entities.GameSettings](t, rec).Version)

		rec = f.do(http.MethodPut, "/games/color/settings", `{"next_color": "green"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(2), decodeBody[entities.GameSettings](t, rec).Version)
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	})

	t.Run("unhealthy", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(errors.New("pool closed"))
		assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/healthz", "").Code)
	})

	t.Run("metrics", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(nil)
		rec := f.do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "# metrics")
	})
}
