package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/games"
	"betledger/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// gameService implements the GameService interface
type gameService struct {
	uowFactory     interfaces.UnitOfWorkFactory
	settings       interfaces.SettingsService
	houseAccountID int64
}

// NewGameService creates a new game service
func NewGameService(uowFactory interfaces.UnitOfWorkFactory, settings interfaces.SettingsService, houseAccountID int64) interfaces.GameService {
	return &gameService{
		uowFactory:     uowFactory,
		settings:       settings,
		houseAccountID: houseAccountID,
	}
}

// PlayColor plays one colour round: stake, draw and payout in one transaction
func (s *gameService) PlayColor(ctx context.Context, accountID int64, stake int64, color string) (*interfaces.ColorResult, error) {
	snapshot, settings, err := snapshotOf[entities.ColorSettings](ctx, s.settings, entities.GameTypeColor)
	if err != nil {
		return nil, err
	}
	if err := settings.CheckStake(stake); err != nil {
		return nil, err
	}
	if !settings.HasColor(color) {
		return nil, entities.ValidationErrorf("unknown colour %q", color)
	}

	seed, err := games.NewSeed()
	if err != nil {
		return nil, err
	}
	drawn, err := games.DrawColor(settings, seed)
	if err != nil {
		return nil, err
	}
	outcome := entities.ColorOutcome{
		Selected: color,
		Drawn:    drawn,
		Won:      drawn == color,
	}
	payout := games.ColorPayout(settings, stake, color, drawn)

	session, balance, err := s.playInstant(ctx, accountID, stake, snapshot, seed, outcome, payout)
	if err != nil {
		return nil, err
	}

	return &interfaces.ColorResult{
		SessionID: session.ID,
		Outcome:   outcome,
		Payout:    payout,
		Balance:   balance,
	}, nil
}

// DropPlinko drops one ball and pays the slot it lands in
func (s *gameService) DropPlinko(ctx context.Context, accountID int64, stake int64) (*interfaces.PlinkoResult, error) {
	snapshot, settings, err := snapshotOf[entities.PlinkoSettings](ctx, s.settings, entities.GameTypePlinko)
	if err != nil {
		return nil, err
	}
	if err := settings.CheckStake(stake); err != nil {
		return nil, err
	}

	seed, err := games.NewSeed()
	if err != nil {
		return nil, err
	}
	outcome, err := games.DropPlinko(settings, seed)
	if err != nil {
		return nil, err
	}
	payout := games.PlinkoPayout(settings, stake, outcome.FinalSlot)

	session, balance, err := s.playInstant(ctx, accountID, stake, snapshot, seed, outcome, payout)
	if err != nil {
		return nil, err
	}

	return &interfaces.PlinkoResult{
		SessionID: session.ID,
		Outcome:   *outcome,
		Payout:    payout,
		Balance:   balance,
	}, nil
}

// StartMines stakes a new mines board. The bombs stay server side until the
// session ends.
func (s *gameService) StartMines(ctx context.Context, accountID int64, stake int64) (*entities.MinesView, error) {
	snapshot, settings, err := snapshotOf[entities.MinesSettings](ctx, s.settings, entities.GameTypeMines)
	if err != nil {
		return nil, err
	}
	if err := settings.CheckStake(stake); err != nil {
		return nil, err
	}

	seed, err := games.NewSeed()
	if err != nil {
		return nil, err
	}
	bombs, err := games.MinesLayout(settings, seed)
	if err != nil {
		return nil, err
	}
	board := games.NewMinesBoard(settings, bombs)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := s.openSession(ctx, uow, accountID, stake, snapshot, seed, board)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"sessionID": session.ID,
		"accountID": accountID,
		"stake":     stake,
	}).Info("Mines session started")

	return minesView(session.GameSession, board), nil
}

// RevealTile uncovers one tile. A bomb loses the stake; clearing every safe
// tile cashes out automatically.
func (s *gameService) RevealTile(ctx context.Context, accountID int64, sessionID uuid.UUID, tile int) (*entities.MinesView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, board, err := s.lockMinesSession(ctx, uow, accountID, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := games.Reveal(board, tile)
	if err != nil {
		return nil, err
	}

	switch {
	case result.HitBomb:
		session.State = entities.SessionStateLost
		if _, err := s.closeSession(ctx, uow, session, board, 0); err != nil {
			return nil, err
		}
	case result.Cleared:
		if err := s.cashOut(ctx, uow, session, board); err != nil {
			return nil, err
		}
	default:
		if err := s.saveBoard(ctx, uow, session, board); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return minesView(session, board), nil
}

// CashOut ends an active board and pays stake times the current multiplier
func (s *gameService) CashOut(ctx context.Context, accountID int64, sessionID uuid.UUID) (*entities.MinesView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, board, err := s.lockMinesSession(ctx, uow, accountID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(board.Revealed) == 0 {
		return nil, entities.ValidationErrorf("reveal at least one tile before cashing out")
	}

	if err := s.cashOut(ctx, uow, session, board); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return minesView(session, board), nil
}

// snapshotOf loads the current settings of a game and decodes them
func snapshotOf[T any](ctx context.Context, svc interfaces.SettingsService, gameType entities.GameType) (*entities.GameSettings, T, error) {
	var settings T
	snapshot, err := svc.Snapshot(ctx, gameType)
	if err != nil {
		return nil, settings, err
	}
	settings, err = entities.DecodeSettings[T](snapshot.Settings)
	if err != nil {
		return nil, settings, fmt.Errorf("stored %s settings are unreadable: %w", gameType, err)
	}
	return snapshot, settings, nil
}

// playInstant records a session that starts and ends in the same call
func (s *gameService) playInstant(ctx context.Context, accountID, stake int64, snapshot *entities.GameSettings, seed []byte, outcome any, payout int64) (*entities.GameSession, int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := s.openSession(ctx, uow, accountID, stake, snapshot, seed, outcome)
	if err != nil {
		return nil, 0, err
	}
	balance := session.balanceAfterStake

	session.State = entities.SessionStateCompleted
	paid, err := s.closeSession(ctx, uow, session.GameSession, outcome, payout)
	if err != nil {
		return nil, 0, err
	}
	if payout > 0 {
		balance = paid
	}

	if err := uow.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"sessionID": session.ID,
		"accountID": accountID,
		"game":      snapshot.GameType,
		"stake":     stake,
		"payout":    payout,
	}).Info("Game round played")

	return session.GameSession, balance, nil
}

// openedSession is a freshly staked session and the player's balance after
// the stake left it
type openedSession struct {
	*entities.GameSession
	balanceAfterStake int64
}

// openSession creates an active session and escrows the stake with the
// player's counterparty
func (s *gameService) openSession(ctx context.Context, uow interfaces.UnitOfWork, accountID, stake int64, snapshot *entities.GameSettings, seed []byte, outcome any) (*openedSession, error) {
	player, err := requireLiveAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}
	if player.Kind != entities.AccountKindUser {
		return nil, entities.ValidationErrorf("only user accounts can play")
	}
	counterparty, counterpartyType, err := counterpartyFor(ctx, uow, player, s.houseAccountID)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outcome: %w", err)
	}

	session := &entities.GameSession{
		ID:              uuid.New(),
		AccountID:       player.ID,
		CounterpartyID:  counterparty.ID,
		GameType:        snapshot.GameType,
		Stake:           stake,
		State:           entities.SessionStateActive,
		Outcome:         raw,
		Seed:            seed,
		SettingsVersion: snapshot.Version,
	}
	if err := uow.GameSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	sessionID := session.ID.String()
	meta := map[string]any{"game": snapshot.GameType}
	out, err := escrow(ctx, uow,
		ledgerMove{
			AccountID:   player.ID,
			Amount:      stake,
			Type:        entities.TransactionTypeBet,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeGameSession,
			RelatedID:   sessionID,
		},
		ledgerMove{
			AccountID:   counterparty.ID,
			Amount:      stake,
			Type:        counterpartyType,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeGameSession,
			RelatedID:   sessionID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to escrow stake: %w", err)
	}

	return &openedSession{GameSession: session, balanceAfterStake: out.BalanceAfter}, nil
}

// pay moves winnings from the session counterparty to the player and returns
// the player's new balance
func (s *gameService) pay(ctx context.Context, uow interfaces.UnitOfWork, session *entities.GameSession, payout int64) (int64, error) {
	sessionID := session.ID.String()
	meta := map[string]any{"game": session.GameType}
	_, in, err := transfer(ctx, uow,
		ledgerMove{
			AccountID:   session.CounterpartyID,
			Amount:      payout,
			Type:        entities.TransactionTypePayout,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeGameSession,
			RelatedID:   sessionID,
		},
		ledgerMove{
			AccountID:   session.AccountID,
			Amount:      payout,
			Type:        entities.TransactionTypeWin,
			Metadata:    meta,
			RelatedType: entities.RelatedTypeGameSession,
			RelatedID:   sessionID,
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pay out session %s: %w", sessionID, err)
	}
	return in.BalanceAfter, nil
}

// closeSession frees the held stake, pays any winnings and records the final
// state. It returns the player's balance after the payout, or zero when
// nothing was paid.
func (s *gameService) closeSession(ctx context.Context, uow interfaces.UnitOfWork, session *entities.GameSession, outcome any, payout int64) (int64, error) {
	if err := release(ctx, uow, session.CounterpartyID, session.Stake); err != nil {
		return 0, err
	}
	var balance int64
	if payout > 0 {
		var err error
		if balance, err = s.pay(ctx, uow, session, payout); err != nil {
			return 0, err
		}
	}
	if err := s.finish(ctx, uow, session, outcome, payout); err != nil {
		return 0, err
	}
	return balance, nil
}

// finish closes a session with its final outcome and payout
func (s *gameService) finish(ctx context.Context, uow interfaces.UnitOfWork, session *entities.GameSession, outcome any, payout int64) error {
	now := time.Now()
	session.Payout = payout
	session.CompletedAt = &now
	if err := s.saveBoard(ctx, uow, session, outcome); err != nil {
		return err
	}

	uow.EventBus().Publish(events.GameSessionCompletedEvent{
		SessionID: session.ID.String(),
		AccountID: session.AccountID,
		GameType:  session.GameType,
		State:     session.State,
		Stake:     session.Stake,
		Payout:    payout,
	})
	return nil
}

func (s *gameService) saveBoard(ctx context.Context, uow interfaces.UnitOfWork, session *entities.GameSession, outcome any) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	session.Outcome = raw
	if err := uow.GameSessionRepository().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update game session %s: %w", session.ID, err)
	}
	return nil
}

func (s *gameService) cashOut(ctx context.Context, uow interfaces.UnitOfWork, session *entities.GameSession, board *entities.MinesOutcome) error {
	multiplier, err := games.BoardMultiplier(board)
	if err != nil {
		return err
	}
	payout := entities.PayoutFor(session.Stake, multiplier)
	session.State = entities.SessionStateCashedOut
	if _, err := s.closeSession(ctx, uow, session, board, payout); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"sessionID":  session.ID,
		"accountID":  session.AccountID,
		"multiplier": board.CurrentMultiplier,
		"payout":     payout,
	}).Info("Mines session cashed out")
	return nil
}

// lockMinesSession loads an active mines session owned by accountID
func (s *gameService) lockMinesSession(ctx context.Context, uow interfaces.UnitOfWork, accountID int64, sessionID uuid.UUID) (*entities.GameSession, *entities.MinesOutcome, error) {
	session, err := uow.GameSessionRepository().GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get game session %s: %w", sessionID, err)
	}
	if session == nil || session.AccountID != accountID || session.GameType != entities.GameTypeMines {
		return nil, nil, entities.NotFoundErrorf("mines session %s", sessionID)
	}
	if !session.IsActive() {
		return nil, nil, entities.ConflictErrorf("mines session %s is %s", sessionID, session.State)
	}

	var board entities.MinesOutcome
	if err := json.Unmarshal(session.Outcome, &board); err != nil {
		return nil, nil, fmt.Errorf("corrupt mines board %s: %w", sessionID, err)
	}
	return session, &board, nil
}

func minesView(session *entities.GameSession, board *entities.MinesOutcome) *entities.MinesView {
	view := &entities.MinesView{
		SessionID:         session.ID,
		State:             session.State,
		GridSize:          board.GridSize,
		Revealed:          board.Revealed,
		CurrentMultiplier: board.CurrentMultiplier,
		Payout:            session.Payout,
	}
	if !session.IsActive() {
		view.Bombs = board.Bombs
	}
	return view
}
