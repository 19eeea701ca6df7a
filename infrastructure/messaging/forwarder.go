package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"betledger/domain/events"

	log "github.com/sirupsen/logrus"
)

// Sink delivers an encoded envelope to an external bus
type Sink interface {
	Publish(ctx context.Context, subject string, key string, data []byte) error
	Close() error
}

// Forwarder relays committed domain events from the in-process bus to a sink
type Forwarder struct {
	sink Sink
}

// NewForwarder creates a new forwarder over sink
func NewForwarder(sink Sink) *Forwarder {
	return &Forwarder{sink: sink}
}

// Attach subscribes the forwarder to every event type on bus
func (f *Forwarder) Attach(bus *events.Bus) {
	for _, eventType := range events.AllEventTypes {
		bus.Subscribe(eventType, f.handle)
	}
}

func (f *Forwarder) handle(ctx context.Context, event events.Event) {
	if err := f.Forward(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event")
	}
}

// Forward encodes and publishes one event
func (f *Forwarder) Forward(ctx context.Context, event events.Event) error {
	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectFor(event.Type())
	if err := f.sink.Publish(ctx, subject, envelope.EventID, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event")
	return nil
}

// Close releases the sink
func (f *Forwarder) Close() error {
	return f.sink.Close()
}

// NoopSink drops every event. Used when EVENT_BUS=none.
type NoopSink struct{}

// NewNoopSink creates a new no-op sink
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// Publish does nothing
func (NoopSink) Publish(context.Context, string, string, []byte) error { return nil }

// Close does nothing
func (NoopSink) Close() error { return nil }
