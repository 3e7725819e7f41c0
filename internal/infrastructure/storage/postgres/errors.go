package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes mapped by repositories.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgLockNotAvailable    = "55P03"
	pgSerializationFailed = "40001"
)

// IsUniqueViolation reports a unique/primary key violation, optionally for one constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	return hasCode(err, pgUniqueViolation, constraint...)
}

// IsCheckViolation reports a CHECK constraint violation, optionally for one constraint.
func IsCheckViolation(err error, constraint ...string) bool {
	return hasCode(err, pgCheckViolation, constraint...)
}

// IsLockTimeout reports lock_timeout expiry.
func IsLockTimeout(err error) bool {
	return hasCode(err, pgLockNotAvailable)
}

// IsSerializationFailure reports a serialization conflict.
func IsSerializationFailure(err error) bool {
	return hasCode(err, pgSerializationFailed)
}

func hasCode(err error, code string, constraint ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
