package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"

	maxIdempotentBody = 1 << 20

	keyIdempotency      = "idempotency_key"
	keyIdempotencyStore = "idempotency_store"
)

// IdempotencyStore is implemented by postgres.IdempotencyStore.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

var _ IdempotencyStore = (*postgres.IdempotencyStore)(nil)

// Idempotency replays the stored response when a POST, PUT or PATCH repeats
// an X-Idempotency-Key for the same user, route and body. Requests without
// the header pass through untouched.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		hash, err := hashBody(c.Request)
		if err != nil {
			abortWith(c, err)
			return
		}

		ctx := c.Request.Context()
		operation := c.Request.Method + " " + c.FullPath()
		replay, err := store.AcquireKey(ctx, key, appctx.GetUserID(ctx), operation, hash)
		switch {
		case err != nil && apperror.IsAppError(err):
			abortWith(c, err)
			return
		case err != nil:
			abortWith(c, apperror.NewInternal(err).WithDetail("component", "idempotency"))
			return
		case replay != nil:
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(keyIdempotency, key)
		c.Set(keyIdempotencyStore, store)
		c.Next()
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// hashBody reads the body, restores it for binding and returns its SHA-256.
func hashBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
	if err != nil {
		return "", apperror.NewValidation("unreadable request body")
	}
	if len(body) > maxIdempotentBody {
		tooLarge := apperror.NewValidation("request body too large for idempotency").
			WithDetail("max_bytes", maxIdempotentBody)
		tooLarge.HTTPStatus = http.StatusRequestEntityTooLarge
		return "", tooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// CompleteIdempotency stores a success response under the request's key, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	if key, store, ok := idempotencyOf(c); ok {
		_ = store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response)
	}
}

// failIdempotency stores an error response so retries see the same failure.
func failIdempotency(c *gin.Context, statusCode int, response any) {
	if key, store, ok := idempotencyOf(c); ok {
		_ = store.FailKey(c.Request.Context(), key, statusCode, "application/json", response)
	}
}

func idempotencyOf(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(keyIdempotency)
	if key == "" {
		return "", nil, false
	}
	store, ok := c.MustGet(keyIdempotencyStore).(IdempotencyStore)
	return key, store, ok && store != nil
}
