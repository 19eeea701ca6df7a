package services

import (
	"context"
	"fmt"
	"strconv"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"
	"betledger/domain/resolvers"

	log "github.com/sirupsen/logrus"
)

// wagerService implements the WagerService interface
type wagerService struct {
	uowFactory     interfaces.UnitOfWorkFactory
	registry       *resolvers.Registry
	houseAccountID int64
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory interfaces.UnitOfWorkFactory, registry *resolvers.Registry, houseAccountID int64) interfaces.WagerService {
	return &wagerService{
		uowFactory:     uowFactory,
		registry:       registry,
		houseAccountID: houseAccountID,
	}
}

// PlaceWager escrows the stake with the counterparty and records a pending
// wager in one transaction
func (s *wagerService) PlaceWager(ctx context.Context, req interfaces.PlaceWagerRequest) (*entities.Wager, error) {
	if req.AccountID <= 0 {
		return nil, entities.ValidationErrorf("account_id is required")
	}
	if req.MatchID <= 0 {
		return nil, entities.ValidationErrorf("match_id is required")
	}
	if err := entities.ValidateAmount(req.Stake); err != nil {
		return nil, err
	}

	terms, err := s.registry.Validate(req.Market, req.Prediction, req.Odds)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := requireLiveAccount(ctx, uow, req.AccountID)
	if err != nil {
		return nil, err
	}
	if player.Kind != entities.AccountKindUser {
		return nil, entities.ValidationErrorf("only user accounts can place wagers")
	}

	counterparty, counterpartyType, err := counterpartyFor(ctx, uow, player, s.houseAccountID)
	if err != nil {
		return nil, err
	}

	wager := &entities.Wager{
		AccountID:      player.ID,
		CounterpartyID: counterparty.ID,
		MatchID:        req.MatchID,
		MarketType:     req.Market,
		Prediction:     req.Prediction,
		SubjectKey:     terms.SubjectKey,
		Stake:          req.Stake,
		Odds:           terms.Odds,
		State:          entities.WagerStatePending,
	}
	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	wagerID := strconv.FormatInt(wager.ID, 10)
	meta := map[string]any{
		"match_id":    req.MatchID,
		"market_type": req.Market,
	}
	_, err = escrow(ctx, uow,
		ledgerMove{
			AccountID:   player.ID,
			Amount:      req.Stake,
			Type:        entities.TransactionTypeBet,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeWager,
			RelatedID:   wagerID,
		},
		ledgerMove{
			AccountID:   counterparty.ID,
			Amount:      req.Stake,
			Type:        counterpartyType,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeWager,
			RelatedID:   wagerID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to escrow stake: %w", err)
	}

	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerID:        wager.ID,
		AccountID:      wager.AccountID,
		CounterpartyID: wager.CounterpartyID,
		MatchID:        wager.MatchID,
		MarketType:     wager.MarketType,
		Stake:          wager.Stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerID":   wager.ID,
		"accountID": wager.AccountID,
		"matchID":   wager.MatchID,
		"market":    wager.MarketType,
		"stake":     wager.Stake,
	}).Info("Wager placed")

	return wager, nil
}

// FindPending returns the settlement snapshot for a match, ordered by id
func (s *wagerService) FindPending(ctx context.Context, matchID int64, markets []entities.MarketType) ([]*entities.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().GetPendingByMatch(ctx, matchID, markets)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending wagers: %w", err)
	}
	return wagers, nil
}

// ListByAccount returns an account's newest wagers
func (s *wagerService) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.Wager, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wagers: %w", err)
	}
	return wagers, nil
}
