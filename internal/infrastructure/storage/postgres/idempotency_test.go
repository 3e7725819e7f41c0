package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
)

func TestIdempotencyDecide(t *testing.T) {
	s := NewIdempotencyStore(nil, time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	created := http.StatusCreated
	ct := "application/json; charset=utf-8"

	base := idempotencyRow{UserID: "u1", Operation: "POST /api/v1/stocks/update", RequestHash: "h1", UpdatedAt: now}

	t.Run("fresh key executes", func(t *testing.T) {
		row := base
		row.Inserted = true
		replay, reclaim, err := s.decide("k", &row, "u1", row.Operation, "h1", now)
		require.NoError(t, err)
		assert.Nil(t, replay)
		assert.False(t, reclaim)
	})

	t.Run("different body is a mismatch", func(t *testing.T) {
		row := base
		_, _, err := s.decide("k", &row, "u1", row.Operation, "h2", now)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})

	t.Run("finished key replays", func(t *testing.T) {
		row := base
		row.Status = IdempotencyStatusSuccess
		row.StatusCode = &created
		row.ContentType = &ct
		row.Response = []byte(`{"ok":true}`)
		replay, _, err := s.decide("k", &row, "u1", row.Operation, "h1", now)
		require.NoError(t, err)
		assert.Equal(t, &IdempotencyReplay{StatusCode: created, ContentType: ct, Body: row.Response}, replay)
	})

	t.Run("failed key without status replays as 200 json", func(t *testing.T) {
		row := base
		row.Status = IdempotencyStatusFailed
		replay, _, err := s.decide("k", &row, "u1", row.Operation, "h1", now)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, replay.StatusCode)
		assert.Equal(t, "application/json", replay.ContentType)
	})

	t.Run("pending key conflicts until stale", func(t *testing.T) {
		row := base
		row.Status = IdempotencyStatusPending
		_, reclaim, err := s.decide("k", &row, "u1", row.Operation, "h1", now.Add(30*time.Second))
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
		assert.False(t, reclaim)

		_, reclaim, err = s.decide("k", &row, "u1", row.Operation, "h1", now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.True(t, reclaim)
	})
}
