package entities

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// MarketType selects the prediction payload and the settlement rule of a wager
type MarketType string

const (
	MarketToss                MarketType = "toss"
	MarketMatchWinner         MarketType = "match_winner"
	MarketBoundaryCount       MarketType = "boundary_count"
	MarketBowlerRunsConceded  MarketType = "bowler_runs_conceded"
	MarketPlayerRunsThreshold MarketType = "player_runs_threshold"
	MarketPlayerWickets       MarketType = "player_wickets"
	MarketRunsAndWickets      MarketType = "runs_and_wickets"
)

// MarketFamily groups markets that settle from the same provider request
type MarketFamily string

const (
	FamilyMatchResult MarketFamily = "match_result"
	FamilyBatting     MarketFamily = "batting"
	FamilyBowling     MarketFamily = "bowling"
)

// AllFamilies lists every market family in settlement order
var AllFamilies = []MarketFamily{FamilyMatchResult, FamilyBatting, FamilyBowling}

// Markets returns the market types settled by the family
func (f MarketFamily) Markets() []MarketType {
	switch f {
	case FamilyMatchResult:
		return []MarketType{MarketToss, MarketMatchWinner, MarketRunsAndWickets}
	case FamilyBatting:
		return []MarketType{MarketBoundaryCount, MarketPlayerRunsThreshold}
	case FamilyBowling:
		return []MarketType{MarketBowlerRunsConceded, MarketPlayerWickets}
	}
	return nil
}

// Includes returns the provider fact categories the family needs
func (f MarketFamily) Includes() []FactCategory {
	switch f {
	case FamilyMatchResult:
		return []FactCategory{FactRuns, FactBatting}
	case FamilyBatting:
		return []FactCategory{FactBatting}
	case FamilyBowling:
		return []FactCategory{FactBowling}
	}
	return nil
}

// IsValid reports whether the family is known
func (f MarketFamily) IsValid() bool {
	return f.Markets() != nil
}

// Family returns the family that settles the market type
func (m MarketType) Family() MarketFamily {
	for _, family := range AllFamilies {
		for _, market := range family.Markets() {
			if market == m {
				return family
			}
		}
	}
	return ""
}

// WagerState is the lifecycle state of a wager
type WagerState string

const (
	WagerStatePending WagerState = "pending"
	WagerStateWon     WagerState = "won"
	WagerStateLost    WagerState = "lost"
	WagerStateVoid    WagerState = "void"
)

// IsTerminal returns true once the wager can no longer change
func (s WagerState) IsTerminal() bool {
	return s == WagerStateWon || s == WagerStateLost || s == WagerStateVoid
}

// Wager is one staked prediction on a cricket market. Its existence implies
// the stake has already moved from the account to the counterparty.
type Wager struct {
	ID               int64           `db:"id"`
	AccountID        int64           `db:"account_id"`
	CounterpartyID   int64           `db:"counterparty_id"`
	MatchID          int64           `db:"match_id"`
	MarketType       MarketType      `db:"market_type"`
	Prediction       json.RawMessage `db:"prediction"`
	SubjectKey       *string         `db:"subject_key"`
	Stake            int64           `db:"stake"`
	Odds             decimal.Decimal `db:"odds"`
	State            WagerState      `db:"state"`
	ResultChecked    bool            `db:"result_checked"`
	Payout           int64           `db:"payout"`
	SettlementReason *string         `db:"settlement_reason"`
	SettledAt        *time.Time      `db:"settled_at"`
	CreatedAt        time.Time       `db:"created_at"`
}

// IsPending returns true while the wager awaits settlement
func (w *Wager) IsPending() bool {
	return w.State == WagerStatePending
}

// WinPayout returns floor(stake x odds) in minor units
func (w *Wager) WinPayout() int64 {
	return PayoutFor(w.Stake, w.Odds)
}

// PayoutFor multiplies stake by multiplier and floors to minor units
func PayoutFor(stake int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(multiplier).Floor().IntPart()
}

// FixedMultiplier is the implicit payout multiplier of the binary player markets
var FixedMultiplier = decimal.NewFromInt(2)
