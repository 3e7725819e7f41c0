package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/apperror"
)

// IdempotencyStatus is the lifecycle state of a key in sys_idempotency.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// IdempotencyReplay is a stored response sent back for a repeated key.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type idempotencyRow struct {
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  *int              `db:"response_status"`
	ContentType *string           `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
	Inserted    bool              `db:"inserted"`
}

// IdempotencyStore keeps Idempotency-Key state for mutating requests.
// Completed and failed responses replay until the key expires.
type IdempotencyStore struct {
	txm *TxManager
	ttl time.Duration
	// staleAfter is how long a pending key survives before it counts as
	// abandoned by a crashed request and may be taken over.
	staleAfter time.Duration
	now        func() time.Time
}

func NewIdempotencyStore(txm *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txm:        txm,
		ttl:        ttl,
		staleAfter: time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AcquireKey claims key for this request. It returns (nil, nil) when the
// caller should execute the request, a replay when the key already finished,
// and an IDEMPOTENCY_CONFLICT error when the key is in flight or belongs to
// a different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()
	db := s.txm.GetQuerier(ctx)

	// The conflict branch leaves updated_at alone so stale detection works.
	var row idempotencyRow
	err := pgxscan.Get(ctx, db, &row, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE
			SET expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING user_id, operation, status, request_hash, response, response_status,
		          response_content_type, updated_at, (xmax = 0) AS inserted`,
		key, userID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	replay, reclaim, err := s.decide(key, &row, userID, operation, requestHash, now)
	if err != nil || !reclaim {
		return replay, err
	}

	tag, err := db.Exec(ctx, `
		UPDATE sys_idempotency SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4`,
		now, key, IdempotencyStatusPending, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// decide classifies an existing key. reclaim asks the caller to take over
// a stale pending key.
func (s *IdempotencyStore) decide(key string, row *idempotencyRow, userID, operation, hash string, now time.Time) (replay *IdempotencyReplay, reclaim bool, err error) {
	if row.Inserted {
		return nil, false, nil
	}
	if row.UserID != userID || row.Operation != operation || row.RequestHash != hash {
		return nil, false, apperror.NewIdempotencyMismatch(key).
			WithDetail("operation", row.Operation)
	}

	switch row.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return row.replay(), false, nil
	case IdempotencyStatusPending:
		if now.Sub(row.UpdatedAt) > s.staleAfter {
			return nil, true, nil
		}
	}
	return nil, false, apperror.NewIdempotencyConflict(key)
}

func (r *idempotencyRow) replay() *IdempotencyReplay {
	out := &IdempotencyReplay{StatusCode: http.StatusOK, ContentType: "application/json", Body: r.Response}
	if r.StatusCode != nil && *r.StatusCode != 0 {
		out.StatusCode = *r.StatusCode
	}
	if r.ContentType != nil && *r.ContentType != "" {
		out.ContentType = *r.ContentType
	}
	return out
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey stores an error response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, code int, ct string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal idempotent response: %w", err)
		}
		body = b
	}

	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE idempotency_key = $6`,
		status, body, code, ct, s.now(), key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired deletes keys past their expiry and reports how many.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, `DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
