package events

import (
	"context"
	"sync"

	"betledger/domain/entities"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange          EventType = "balance_change"
	EventTypeAccountCreated         EventType = "account_created"
	EventTypeWagerPlaced            EventType = "wager_placed"
	EventTypeWagerSettled           EventType = "wager_settled"
	EventTypeGameSessionCompleted   EventType = "game_session_completed"
	EventTypeSettlementDeadLettered EventType = "settlement_dead_lettered"
)

// AllEventTypes lists every event the bus can carry
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeAccountCreated,
	EventTypeWagerPlaced,
	EventTypeWagerSettled,
	EventTypeGameSessionCompleted,
	EventTypeSettlementDeadLettered,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64                    `json:"account_id"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                    `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a newly registered account
type AccountCreatedEvent struct {
	AccountID int64                `json:"account_id"`
	Username  string               `json:"username"`
	Kind      entities.AccountKind `json:"kind"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// WagerPlacedEvent represents a wager whose stake has left the account
type WagerPlacedEvent struct {
	WagerID        int64               `json:"wager_id"`
	AccountID      int64               `json:"account_id"`
	CounterpartyID int64               `json:"counterparty_id"`
	MatchID        int64               `json:"match_id"`
	MarketType     entities.MarketType `json:"market_type"`
	Stake          int64               `json:"stake"`
}

func (e WagerPlacedEvent) Type() EventType {
	return EventTypeWagerPlaced
}

// WagerSettledEvent represents a wager's single terminal transition
type WagerSettledEvent struct {
	WagerID    int64               `json:"wager_id"`
	AccountID  int64               `json:"account_id"`
	MatchID    int64               `json:"match_id"`
	MarketType entities.MarketType `json:"market_type"`
	Result     entities.WagerState `json:"result"`
	Payout     int64               `json:"payout"`
	Reason     string              `json:"reason"`
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// GameSessionCompletedEvent represents a mini-game session reaching a terminal state
type GameSessionCompletedEvent struct {
	SessionID string                `json:"session_id"`
	AccountID int64                 `json:"account_id"`
	GameType  entities.GameType     `json:"game_type"`
	State     entities.SessionState `json:"state"`
	Stake     int64                 `json:"stake"`
	Payout    int64                 `json:"payout"`
}

func (e GameSessionCompletedEvent) Type() EventType {
	return EventTypeGameSessionCompleted
}

// SettlementDeadLetteredEvent represents a match the scheduler parked
type SettlementDeadLetteredEvent struct {
	MatchID             int64                 `json:"match_id"`
	Family              entities.MarketFamily `json:"family"`
	ConsecutiveFailures int                   `json:"consecutive_failures"`
	LastError           string                `json:"last_error"`
}

func (e SettlementDeadLetteredEvent) Type() EventType {
	return EventTypeSettlementDeadLettered
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking the committing caller
	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then flushes them to the underlying bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the events waiting for commit
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	if b.real == nil {
		b.pending = nil
		return
	}

	// Handlers outlive the transaction, so they get a context without its deadline
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
