package services

import (
	"context"
	"fmt"
	"strings"

	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory     interfaces.UnitOfWorkFactory
	houseAccountID int64
}

// NewLedgerService creates a new ledger service. houseAccountID overrides the
// default house (the lowest-id admin) when non-zero.
func NewLedgerService(uowFactory interfaces.UnitOfWorkFactory, houseAccountID int64) interfaces.LedgerService {
	return &ledgerService{
		uowFactory:     uowFactory,
		houseAccountID: houseAccountID,
	}
}

// RegisterAccount creates an account. Members are issued a referral code;
// users may name one to stake against that member.
func (s *ledgerService) RegisterAccount(ctx context.Context, req interfaces.RegisterAccountRequest) (*entities.Account, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, entities.ValidationErrorf("username is required")
	}
	if req.Kind == "" {
		req.Kind = entities.AccountKindUser
	}
	if !req.Kind.IsValid() {
		return nil, entities.ValidationErrorf("unknown account kind %q", req.Kind)
	}
	if req.ReferralCode != "" && req.Kind != entities.AccountKindUser {
		return nil, entities.ValidationErrorf("only users can be referred")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account := &entities.Account{
		Username: username,
		Kind:     req.Kind,
	}

	if req.ReferralCode != "" {
		member, err := uow.AccountRepository().GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			return nil, fmt.Errorf("failed to look up referral code: %w", err)
		}
		if member == nil {
			return nil, entities.ValidationErrorf("unknown referral code %q", req.ReferralCode)
		}
		account.ReferredBy = &member.ID
	}

	if req.Kind == entities.AccountKindMember {
		code := newReferralCode()
		account.ReferralCode = &code
	}

	if err := uow.AccountRepository().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID: account.ID,
		Username:  account.Username,
		Kind:      account.Kind,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": account.ID,
		"kind":      account.Kind,
	}).Info("Account registered")

	return account, nil
}

// DeleteAccount soft-deletes an account with no open positions
func (s *ledgerService) DeleteAccount(ctx context.Context, accountID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().LockForUpdate(ctx, accountID); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	account, err := requireLiveAccount(ctx, uow, accountID)
	if err != nil {
		return err
	}
	if account.Held > 0 {
		return entities.ConflictErrorf("account %d holds %d in open stakes", accountID, account.Held)
	}

	pending, err := uow.WagerRepository().CountPendingByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to count pending wagers: %w", err)
	}
	if pending > 0 {
		return entities.ConflictErrorf("account %d has %d pending wagers", accountID, pending)
	}

	active, err := uow.GameSessionRepository().CountActiveByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to count active sessions: %w", err)
	}
	if active > 0 {
		return entities.ConflictErrorf("account %d has %d active game sessions", accountID, active)
	}

	if err := uow.AccountRepository().SoftDelete(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Balance returns the current balance of a live account
func (s *ledgerService) Balance(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := requireLiveAccount(ctx, uow, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// History returns the newest ledger entries of an account
func (s *ledgerService) History(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
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

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, entities.NotFoundErrorf("account %d", accountID)
	}

	entries, err := uow.LedgerEntryRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

// Deposit credits external funds
func (s *ledgerService) Deposit(ctx context.Context, accountID int64, amount int64) (int64, error) {
	return s.external(ctx, ledgerMove{
		AccountID: accountID,
		Amount:    amount,
		Type:      entities.TransactionTypeDeposit,
	})
}

// Withdraw debits funds leaving the system
func (s *ledgerService) Withdraw(ctx context.Context, accountID int64, amount int64) (int64, error) {
	return s.external(ctx, ledgerMove{
		AccountID: accountID,
		Amount:    amount,
		Type:      entities.TransactionTypeWithdrawal,
	})
}

func (s *ledgerService) external(ctx context.Context, move ledgerMove) (int64, error) {
	if err := entities.ValidateAmount(move.Amount); err != nil {
		return 0, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var entry *entities.LedgerEntry
	var err error
	if move.Type.IsCredit() {
		entry, err = credit(ctx, uow, move)
	} else {
		entry, err = debit(ctx, uow, move)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to apply %s: %w", move.Type, err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry.BalanceAfter, nil
}

// Transfer moves funds between two accounts in one transaction
func (s *ledgerService) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount int64) (*interfaces.TransferResult, error) {
	if err := entities.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if fromAccountID == toAccountID {
		return nil, entities.ValidationErrorf("cannot transfer to yourself")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transferID := uuid.NewString()
	out, in, err := transfer(ctx, uow,
		ledgerMove{
			AccountID:   fromAccountID,
			Amount:      amount,
			Type:        entities.TransactionTypeTransferOut,
			Metadata:    map[string]any{"recipient_account_id": toAccountID},
			RelatedType: entities.RelatedTypeTransfer,
			RelatedID:   transferID,
		},
		ledgerMove{
			AccountID:   toAccountID,
			Amount:      amount,
			Type:        entities.TransactionTypeTransferIn,
			Metadata:    map[string]any{"sender_account_id": fromAccountID},
			RelatedType: entities.RelatedTypeTransfer,
			RelatedID:   transferID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &interfaces.TransferResult{
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		Amount:        amount,
		FromBalance:   out.BalanceAfter,
		ToBalance:     in.BalanceAfter,
	}, nil
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// counterpartyFor returns the account taking the other side of a player's
// stake and the transaction type it records. Referred users play against
// their member; everyone else plays against the house.
func counterpartyFor(ctx context.Context, uow interfaces.UnitOfWork, player *entities.Account, houseAccountID int64) (*entities.Account, entities.TransactionType, error) {
	if player.ReferredBy != nil {
		member, err := uow.AccountRepository().GetByID(ctx, *player.ReferredBy)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get referring member: %w", err)
		}
		if member != nil && !member.IsDeleted() {
			return member, entities.TransactionTypeReferral, nil
		}
	}

	var house *entities.Account
	var err error
	if houseAccountID != 0 {
		house, err = uow.AccountRepository().GetByID(ctx, houseAccountID)
	} else {
		house, err = uow.AccountRepository().GetHouseAccount(ctx)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get house account: %w", err)
	}
	if house == nil || house.IsDeleted() {
		return nil, "", entities.NotFoundErrorf("house account")
	}
	if house.ID == player.ID {
		return nil, "", entities.ValidationErrorf("the house account cannot play")
	}
	return house, entities.TransactionTypeStakeReceived, nil
}
