package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"
	"betledger/domain/resolvers"

	log "github.com/sirupsen/logrus"
)

// settlementService implements the SettlementService interface
type settlementService struct {
	uowFactory interfaces.UnitOfWorkFactory
	provider   interfaces.MatchFactsProvider
	registry   *resolvers.Registry
	metrics    interfaces.SettlementMetrics
}

// NewSettlementService creates a new settlement service. metrics may be nil.
func NewSettlementService(
	uowFactory interfaces.UnitOfWorkFactory,
	provider interfaces.MatchFactsProvider,
	registry *resolvers.Registry,
	metrics interfaces.SettlementMetrics,
) interfaces.SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		provider:   provider,
		registry:   registry,
		metrics:    metrics,
	}
}

// Settle runs one settlement pass for a match and market family. A provider
// failure aborts the pass before any wager is touched.
func (s *settlementService) Settle(ctx context.Context, matchID int64, family entities.MarketFamily) (summary *entities.SettlementSummary, err error) {
	if !family.IsValid() {
		return nil, entities.ValidationErrorf("unknown market family %q", family)
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSettlementRun(family, time.Since(start), err)
		}
	}()

	facts, err := s.provider.FetchMatchFacts(ctx, matchID, family.Includes())
	if err != nil {
		var providerErr *entities.ProviderError
		if !errors.As(err, &providerErr) {
			err = &entities.ProviderError{MatchID: matchID, Err: err}
		}
		return nil, fmt.Errorf("failed to fetch facts for match %d: %w", matchID, err)
	}

	wagers, err := s.pendingWagers(ctx, matchID, family)
	if err != nil {
		return nil, err
	}

	summary = &entities.SettlementSummary{
		MatchID:   matchID,
		Family:    family,
		Results:   make([]entities.WagerSettlement, 0, len(wagers)),
		StartedAt: start,
	}

	for _, wager := range wagers {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now()
			return summary, fmt.Errorf("settlement of match %d interrupted: %w", matchID, err)
		}
		result := s.settleWager(ctx, wager, facts)
		summary.Add(result)
		if s.metrics != nil {
			s.metrics.RecordWagerSettlement(family, result.Status)
		}
	}
	summary.FinishedAt = time.Now()

	log.WithFields(log.Fields{
		"matchID":  matchID,
		"family":   family,
		"status":   facts.Status,
		"examined": summary.Examined,
		"settled":  summary.Settled,
		"deferred": summary.Deferred,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}).Info("Settlement pass completed")

	return summary, nil
}

// SettleAll settles every market family of a match. Families are independent:
// a failed family does not stop the others.
func (s *settlementService) SettleAll(ctx context.Context, matchID int64) ([]*entities.SettlementSummary, error) {
	summaries := make([]*entities.SettlementSummary, 0, len(entities.AllFamilies))
	var errs []error
	for _, family := range entities.AllFamilies {
		summary, err := s.Settle(ctx, matchID, family)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", family, err))
		}
	}
	return summaries, errors.Join(errs...)
}

// TrackedMatches returns matches that currently hold pending wagers of the family
func (s *settlementService) TrackedMatches(ctx context.Context, family entities.MarketFamily) ([]int64, error) {
	if !family.IsValid() {
		return nil, entities.ValidationErrorf("unknown market family %q", family)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	matches, err := uow.WagerRepository().GetMatchesWithPending(ctx, family.Markets())
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked matches: %w", err)
	}
	return matches, nil
}

func (s *settlementService) pendingWagers(ctx context.Context, matchID int64, family entities.MarketFamily) ([]*entities.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().GetPendingByMatch(ctx, matchID, family.Markets())
	if err != nil {
		return nil, fmt.Errorf("failed to get pending wagers for match %d: %w", matchID, err)
	}
	return wagers, nil
}

// resolve shields the pass from a panicking resolver
func (s *settlementService) resolve(wager *entities.Wager, facts *entities.MatchFacts) (outcome entities.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panicked: %v", r)
		}
	}()
	return s.registry.Resolve(wager, facts)
}

// settleWager applies one outcome: CAS on the wager state plus the ledger
// effect, committed together or not at all
func (s *settlementService) settleWager(ctx context.Context, wager *entities.Wager, facts *entities.MatchFacts) entities.WagerSettlement {
	result := entities.WagerSettlement{WagerID: wager.ID}
	logger := log.WithFields(log.Fields{
		"wagerID": wager.ID,
		"matchID": wager.MatchID,
		"market":  wager.MarketType,
	})

	outcome, err := s.resolve(wager, facts)
	if err != nil {
		logger.WithError(err).Error("Failed to resolve wager")
		result.Status = entities.SettlementStatusFailed
		result.Error = err.Error()
		return result
	}
	result.Reason = outcome.Reason

	if !outcome.Resolvable {
		result.Status = entities.SettlementStatusDeferred
		return result
	}

	applied, err := s.apply(ctx, wager, outcome)
	if err != nil {
		logger.WithError(err).Error("Failed to apply settlement")
		result.Status = entities.SettlementStatusFailed
		result.Error = err.Error()
		return result
	}
	if !applied {
		logger.Debug("Wager already settled by a concurrent run")
		result.Status = entities.SettlementStatusSkipped
		return result
	}

	logger.WithFields(log.Fields{
		"result": outcome.Result,
		"payout": outcome.Payout,
	}).Info("Wager settled")

	result.Status = entities.SettlementStatusSettled
	result.Result = outcome.Result
	result.Payout = outcome.Payout
	return result
}

func (s *settlementService) apply(ctx context.Context, wager *entities.Wager, outcome entities.Outcome) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The wager records realised winnings only; a void refund is not a payout.
	var realised int64
	if outcome.Result == entities.WagerStateWon {
		realised = outcome.Payout
	}
	applied, err := uow.WagerRepository().Settle(ctx, wager.ID, outcome.Result, realised, outcome.Reason)
	if err != nil {
		return false, fmt.Errorf("failed to settle wager %d: %w", wager.ID, err)
	}
	if !applied {
		return false, nil
	}

	if err := release(ctx, uow, wager.CounterpartyID, wager.Stake); err != nil {
		return false, fmt.Errorf("failed to release wager %d: %w", wager.ID, err)
	}

	if outcome.Payout > 0 {
		playerType := entities.TransactionTypeWin
		if outcome.Result == entities.WagerStateVoid {
			playerType = entities.TransactionTypeRefund
		}
		wagerID := strconv.FormatInt(wager.ID, 10)
		meta := map[string]any{
			"match_id":    wager.MatchID,
			"market_type": wager.MarketType,
			"result":      outcome.Result,
		}
		_, _, err := transfer(ctx, uow,
			ledgerMove{
				AccountID:   wager.CounterpartyID,
				Amount:      outcome.Payout,
				Type:        entities.TransactionTypePayout,
				Metadata:    meta,
				RelatedType: entities.RelatedTypeWager,
				RelatedID:   wagerID,
			},
			ledgerMove{
				AccountID:   wager.AccountID,
				Amount:      outcome.Payout,
				Type:        playerType,
				Metadata:    meta,
				RelatedType: entities.RelatedTypeWager,
				RelatedID:   wagerID,
			},
		)
		if err != nil {
			return false, fmt.Errorf("failed to pay out wager %d: %w", wager.ID, err)
		}
	}

	uow.EventBus().Publish(events.WagerSettledEvent{
		WagerID:    wager.ID,
		AccountID:  wager.AccountID,
		MatchID:    wager.MatchID,
		MarketType: wager.MarketType,
		Result:     outcome.Result,
		Payout:     outcome.Payout,
		Reason:     outcome.Reason,
	})

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return true, nil
}
