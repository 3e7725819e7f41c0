package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "finished_batches_pkey"})

	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(err, "finished_batches_pkey"))
	assert.False(t, IsUniqueViolation(err, "other_key"))
	assert.False(t, IsCheckViolation(err))
	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestIsLockTimeout(t *testing.T) {
	assert.True(t, IsLockTimeout(&pgconn.PgError{Code: "55P03"}))
	assert.False(t, IsLockTimeout(&pgconn.PgError{Code: "23505"}))
}
