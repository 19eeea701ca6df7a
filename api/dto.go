package api

import (
	"encoding/json"
	"time"

	"betledger/domain/entities"
)

// AccountDTO is the wire form of an account
type AccountDTO struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Kind         string     `json:"kind"`
	Balance      int64      `json:"balance"`
	Held         int64      `json:"held"`
	ReferralCode *string    `json:"referral_code,omitempty"`
	ReferredBy   *int64     `json:"referred_by,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LedgerEntryDTO is the wire form of a ledger entry
type LedgerEntryDTO struct {
	ID              int64          `json:"id"`
	BalanceBefore   int64          `json:"balance_before"`
	BalanceAfter    int64          `json:"balance_after"`
	ChangeAmount    int64          `json:"change_amount"`
	TransactionType string         `json:"transaction_type"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	RelatedID       *string        `json:"related_id,omitempty"`
	RelatedType     *string        `json:"related_type,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// WagerDTO is the wire form of a wager
type WagerDTO struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	CounterpartyID   int64           `json:"counterparty_id"`
	MatchID          int64           `json:"match_id"`
	Market           string          `json:"market"`
	Prediction       json.RawMessage `json:"prediction"`
	Stake            int64           `json:"stake"`
	Odds             string          `json:"odds"`
	State            string          `json:"state"`
	Payout           int64           `json:"payout"`
	SettlementReason *string         `json:"settlement_reason,omitempty"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// DeadLetterDTO is the wire form of a parked (match, family) pair
type DeadLetterDTO struct {
	MatchID             int64     `json:"match_id"`
	Family              string    `json:"family"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error"`
	CreatedAt           time.Time `json:"created_at"`
}

func toAccountDTO(a *entities.Account) AccountDTO {
	return AccountDTO{
		ID:           a.ID,
		Username:     a.Username,
		Kind:         string(a.Kind),
		Balance:      a.Balance,
		ReferralCode: a.ReferralCode,
		ReferredBy:   a.ReferredBy,
		DeletedAt:    a.DeletedAt,
		CreatedAt:    a.CreatedAt,
	}
}

func toLedgerEntryDTOs(entries []*entities.LedgerEntry) []LedgerEntryDTO {
	out := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = LedgerEntryDTO{
			ID:              e.ID,
			BalanceBefore:   e.BalanceBefore,
			BalanceAfter:    e.BalanceAfter,
			ChangeAmount:    e.ChangeAmount,
			TransactionType: string(e.TransactionType),
			Metadata:        e.Metadata,
			RelatedID:       e.RelatedID,
			CreatedAt:       e.CreatedAt,
		}
		if e.RelatedType != nil {
			rt := string(*e.RelatedType)
			out[i].RelatedType = &rt
		}
	}
	return out
}

func toWagerDTO(w *entities.Wager) WagerDTO {
	return WagerDTO{
		ID:               w.ID,
		AccountID:        w.AccountID,
		CounterpartyID:   w.CounterpartyID,
		MatchID:          w.MatchID,
		Market:           string(w.MarketType),
		Prediction:       w.Prediction,
		Stake:            w.Stake,
		Odds:             w.Odds.String(),
		State:            string(w.State),
		Payout:           w.Payout,
		SettlementReason: w.SettlementReason,
		SettledAt:        w.SettledAt,
		CreatedAt:        w.CreatedAt,
	}
}

func toWagerDTOs(wagers []*entities.Wager) []WagerDTO {
	out := make([]WagerDTO, len(wagers))
	for i, w := range wagers {
		out[i] = toWagerDTO(w)
	}
	return out
}

func toDeadLetterDTOs(letters []*entities.DeadLetter) []DeadLetterDTO {
	out := make([]DeadLetterDTO, len(letters))
	for i, dl := range letters {
		out[i] = DeadLetterDTO{
			MatchID:             dl.MatchID,
			Family:              string(dl.Family),
			ConsecutiveFailures: dl.ConsecutiveFailures,
			LastError:           dl.LastError,
			CreatedAt:           dl.CreatedAt,
		}
	}
	return out
}
