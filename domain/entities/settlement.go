package entities

import "time"

// Outcome is a resolver's verdict for one wager against one facts snapshot
type Outcome struct {
	Resolvable bool
	Result     WagerState
	Payout     int64
	Reason     string
}

// NotResolvable defers the wager to a later cycle
func NotResolvable(reason string) Outcome {
	return Outcome{Resolvable: false, Reason: reason}
}

// Won pays payout to the wager's account
func Won(payout int64, reason string) Outcome {
	return Outcome{Resolvable: true, Result: WagerStateWon, Payout: payout, Reason: reason}
}

// Lost keeps the stake with the counterparty
func Lost(reason string) Outcome {
	return Outcome{Resolvable: true, Result: WagerStateLost, Reason: reason}
}

// Void refunds the full stake
func Void(stake int64, reason string) Outcome {
	return Outcome{Resolvable: true, Result: WagerStateVoid, Payout: stake, Reason: reason}
}

// SettlementStatus classifies what happened to one wager in a run
type SettlementStatus string

const (
	SettlementStatusSettled  SettlementStatus = "settled"
	SettlementStatusDeferred SettlementStatus = "deferred"
	SettlementStatusSkipped  SettlementStatus = "skipped"
	SettlementStatusFailed   SettlementStatus = "failed"
)

// WagerSettlement records one wager's fate within a settlement run
type WagerSettlement struct {
	WagerID int64            `json:"wager_id"`
	Status  SettlementStatus `json:"status"`
	Result  WagerState       `json:"result,omitempty"`
	Payout  int64            `json:"payout"`
	Reason  string           `json:"reason,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SettlementSummary reports a settlement run for one match and family
type SettlementSummary struct {
	MatchID    int64             `json:"match_id"`
	Family     MarketFamily      `json:"family"`
	Examined   int               `json:"examined"`
	Settled    int               `json:"settled"`
	Deferred   int               `json:"deferred"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Results    []WagerSettlement `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Add tallies one wager result into the summary
func (s *SettlementSummary) Add(result WagerSettlement) {
	s.Examined++
	switch result.Status {
	case SettlementStatusSettled:
		s.Settled++
	case SettlementStatusDeferred:
		s.Deferred++
	case SettlementStatusSkipped:
		s.Skipped++
	case SettlementStatusFailed:
		s.Failed++
	}
	s.Results = append(s.Results, result)
}

// DeadLetter is an open or resolved record of a (match, family) pair the
// scheduler gave up on
type DeadLetter struct {
	ID                  int64        `db:"id"`
	MatchID             int64        `db:"match_id"`
	Family              MarketFamily `db:"family"`
	ConsecutiveFailures int          `db:"consecutive_failures"`
	LastError           string       `db:"last_error"`
	CreatedAt           time.Time    `db:"created_at"`
	ResolvedAt          *time.Time   `db:"resolved_at"`
}
