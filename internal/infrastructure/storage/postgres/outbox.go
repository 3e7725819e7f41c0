package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"bakehouse/internal/core/events"
	"bakehouse/internal/core/id"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher implements events.Publisher on sys_outbox. Events are
// written by the caller's transaction and become visible to the relay
// only if it commits.
type OutboxPublisher struct {
	txm *TxManager
}

var _ events.Publisher = (*OutboxPublisher)(nil)

func NewOutboxPublisher(txm *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txm: txm}
}

// Publish inserts evts with one multi-row INSERT. It fails outside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	tx, err := p.txm.RequireTx(ctx, "outbox publish")
	if err != nil || len(evts) == 0 {
		return err
	}

	now := time.Now().UTC()
	q := psql.Insert("sys_outbox").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at")
	for _, e := range evts {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		q = q.Values(id.New(), e.AggregateType, e.AggregateID, e.Type, payload, OutboxStatusPending, now)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox messages: %w", err)
	}
	return nil
}
