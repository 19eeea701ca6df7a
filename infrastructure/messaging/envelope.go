package messaging

import (
	"encoding/json"
	"fmt"

	"betledger/domain/events"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// SourceService names this process in every envelope
const SourceService = "betledger"

// Envelope wraps a domain event for the wire
type Envelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}

// NewEnvelope serialises event into a fresh envelope
func NewEnvelope(event events.Event) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &Envelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: SourceService,
		Payload:       payload,
	}, nil
}

// SubjectFor maps an event to its bus subject
func SubjectFor(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChange:
		return "ledger.balance_changed"
	case events.EventTypeAccountCreated:
		return "ledger.account_created"
	case events.EventTypeWagerPlaced:
		return "wagers.placed"
	case events.EventTypeWagerSettled:
		return "wagers.settled"
	case events.EventTypeGameSessionCompleted:
		return "games.session_completed"
	case events.EventTypeSettlementDeadLettered:
		return "settlement.dead_lettered"
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// AllSubjects returns every subject this service publishes to
func AllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, SubjectFor(eventType))
	}
	return subjects
}
