package repository

import (
	"context"

	"betledger/database"

	"github.com/jackc/pgx/v5"
)

// ConservationReport compares the money held by accounts with the money
// that entered and left the system. Internal movements never change either side.
type ConservationReport struct {
	TotalBalance    int64 `json:"total_balance"`
	NetExternalFlow int64 `json:"net_external_flow"`
	Balanced        bool  `json:"balanced"`
}

// LedgerAudit checks ledger-wide invariants against a consistent snapshot
type LedgerAudit struct {
	db *database.DB
}

// NewLedgerAudit creates a new ledger audit
func NewLedgerAudit(db *database.DB) *LedgerAudit {
	return &LedgerAudit{db: db}
}

// CheckConservation reads both totals from one snapshot
func (a *LedgerAudit) CheckConservation(ctx context.Context) (*ConservationReport, error) {
	report := &ConservationReport{}

	err := a.db.WithSnapshot(ctx, func(tx pgx.Tx) error {
		var err error
		if report.TotalBalance, err = newAccountRepositoryWithTx(tx).TotalBalance(ctx); err != nil {
			return err
		}
		report.NetExternalFlow, err = newLedgerEntryRepositoryWithTx(tx).NetExternalFlow(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report.Balanced = report.TotalBalance == report.NetExternalFlow
	return report, nil
}
