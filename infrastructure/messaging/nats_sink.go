package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream holding every betledger subject
const StreamName = "betledger_events"

// NATSSink publishes envelopes through NATS JetStream
type NATSSink struct {
	servers              string
	nc                   *nats.Conn
	js                   nats.JetStreamContext
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// NewNATSSink creates a new, unconnected NATS sink
func NewNATSSink(servers string) *NATSSink {
	return &NATSSink{
		servers:              servers,
		reconnectDelay:       2 * time.Second,
		maxReconnectAttempts: 10,
	}
}

// Connect establishes the connection and makes sure the stream exists
func (s *NATSSink) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(SourceService),
		nats.MaxReconnects(s.maxReconnectAttempts),
		nats.ReconnectWait(s.reconnectDelay),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(s.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s.nc = nc
	s.js = js

	if err := s.ensureStream(); err != nil {
		nc.Close()
		return err
	}

	log.WithField("servers", s.servers).Info("Connected to NATS with JetStream")
	return nil
}

func (s *NATSSink) ensureStream() error {
	if _, err := s.js.StreamInfo(StreamName); err == nil {
		log.WithField("stream", StreamName).Info("JetStream stream already exists")
		return nil
	}

	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:        StreamName,
		Subjects:    AllSubjects(),
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Ledger, wager and settlement events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}

	log.WithFields(log.Fields{
		"stream":   StreamName,
		"subjects": AllSubjects(),
	}).Info("Created JetStream stream")
	return nil
}

// Publish sends data on subject. The envelope id doubles as the JetStream
// message id, so a retried publish is deduplicated by the server.
func (s *NATSSink) Publish(ctx context.Context, subject string, key string, data []byte) error {
	if s.js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	_, err := s.js.Publish(subject, data, nats.MsgId(key), nats.Context(ctx))
	if err != nil {
		// Nobody has configured a stream for this subject
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}
	return nil
}

// IsConnected returns true if the sink is connected to NATS
func (s *NATSSink) IsConnected() bool {
	return s.nc != nil && s.nc.IsConnected()
}

// Close drains and closes the connection
func (s *NATSSink) Close() error {
	if s.nc == nil {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	log.Info("NATS connection closed")
	return nil
}
