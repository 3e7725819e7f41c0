package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
)

// OutboxHandler delivers one message. An error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error { return f(ctx, msg) }

type OutboxRelayConfig struct {
	BatchSize  int
	MaxRetries int
	// BaseBackoff doubles per failed attempt up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// OutboxRelay drains pending outbox messages into a handler. Several
// relays may run at once; FOR UPDATE SKIP LOCKED keeps them apart.
type OutboxRelay struct {
	txm     *TxManager
	cfg     OutboxRelayConfig
	handler OutboxHandler
	now     func() time.Time
}

func NewOutboxRelay(txm *TxManager, cfg OutboxRelayConfig, handler OutboxHandler) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 10 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Minute
	}
	return &OutboxRelay{txm: txm, cfg: cfg, handler: handler, now: func() time.Time { return time.Now().UTC() }}
}

// backoff is the delay before attempt retries+1.
func (r *OutboxRelay) backoff(retries int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 0; i < retries && d < r.cfg.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, r.cfg.MaxBackoff)
}

// ProcessBatch claims up to BatchSize due messages and hands each to the
// handler, all in one transaction. It returns how many were delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	delivered := 0
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx, err := r.txm.RequireTx(ctx, "outbox relay")
		if err != nil {
			return err
		}

		var msgs []*OutboxMessage
		if err := pgxscan.Select(ctx, tx, &msgs, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED`,
			OutboxStatusPending, r.now(), r.cfg.BatchSize); err != nil {
			return fmt.Errorf("claim outbox messages: %w", err)
		}

		stmts := make([]Statement, 0, len(msgs))
		for _, msg := range msgs {
			if herr := r.handler.Handle(ctx, msg); herr != nil {
				stmts = append(stmts, r.markRetry(msg, herr))
				continue
			}
			delivered++
			stmts = append(stmts, Statement{
				Query: psql.Update("sys_outbox").
					Set("status", OutboxStatusPublished).
					Set("published_at", r.now()).
					Where("id = ?", msg.ID),
				ExpectRows: 1,
			})
		}
		return r.txm.ExecBatch(ctx, stmts...)
	})
	if err != nil {
		return 0, err
	}
	return delivered, nil
}

// markRetry records a failed attempt. The message is parked as failed once
// it has used MaxRetries attempts.
func (r *OutboxRelay) markRetry(msg *OutboxMessage, cause error) Statement {
	attempts := msg.RetryCount + 1
	q := psql.Update("sys_outbox").
		Set("retry_count", attempts).
		Set("last_error", cause.Error()).
		Set("next_retry_at", r.now().Add(r.backoff(msg.RetryCount))).
		Where("id = ?", msg.ID)
	if attempts >= r.cfg.MaxRetries {
		q = q.Set("status", OutboxStatusFailed)
	}
	return Statement{Query: q, ExpectRows: 1}
}

// MoveToDLQ moves parked messages to sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1
			RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, retry_count, failure_reason, created_at, failed_at)
		SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at, $2 FROM moved`,
		OutboxStatusFailed, r.now())
	if err != nil {
		return 0, fmt.Errorf("move outbox to dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgePublished deletes messages published more than olderThan ago.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2`,
		OutboxStatusPublished, r.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge published outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}
