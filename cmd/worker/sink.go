package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

// Envelope is what subscribers receive for each relayed event.
type Envelope struct {
	ID            string          `json:"id"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSink delivers relayed events.
type EventSink interface {
	Deliver(ctx context.Context, env Envelope) error
}

func relayHandler(sink EventSink) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		return sink.Deliver(ctx, envelopeOf(msg))
	})
}

func envelopeOf(msg *postgres.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID.String(),
		EventType:     msg.EventType,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		OccurredAt:    msg.CreatedAt,
		Payload:       payload,
	}
}

// redisSink publishes each event on "<prefix><eventType>".
type redisSink struct {
	rdb           redis.UniversalClient
	channelPrefix string
}

func (s *redisSink) Deliver(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", env.ID, err)
	}
	if err := s.rdb.Publish(ctx, s.channelPrefix+env.EventType, body).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", env.ID, err)
	}
	return nil
}

// logSink is used when no broker is configured.
type logSink struct {
	log *logger.Logger
}

func (s logSink) Deliver(_ context.Context, env Envelope) error {
	s.log.Infow("event", "id", env.ID, "type", env.EventType, "aggregate", env.AggregateID)
	return nil
}
