package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelay_Backoff(t *testing.T) {
	r := NewOutboxRelay(nil, OutboxRelayConfig{BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}, nil)

	assert.Equal(t, time.Second, r.backoff(0))
	assert.Equal(t, 2*time.Second, r.backoff(1))
	assert.Equal(t, 4*time.Second, r.backoff(2))
	assert.Equal(t, 5*time.Second, r.backoff(3))
	assert.Equal(t, 5*time.Second, r.backoff(40))
}

func TestOutboxRelay_MarkRetry(t *testing.T) {
	r := NewOutboxRelay(nil, OutboxRelayConfig{MaxRetries: 3}, nil)
	r.now = func() time.Time { return time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC) }
	msg := &OutboxMessage{ID: uuid.New(), RetryCount: 0}

	sql, args, err := r.markRetry(msg, errors.New("redis down")).Query.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sys_outbox SET retry_count = $1, last_error = $2, next_retry_at = $3 WHERE id = $4", sql)
	assert.Equal(t, 1, args[0])
	assert.Equal(t, "redis down", args[1])

	msg.RetryCount = 2
	sql, args, err = r.markRetry(msg, errors.New("redis down")).Query.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "status = $4")
	assert.Equal(t, OutboxStatusFailed, args[3])
}
