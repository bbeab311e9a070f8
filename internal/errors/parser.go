package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes inspected by the classifiers.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == KindNotFound
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	// 1. gorm with TranslateError
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// 2. PostgreSQL (23505)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// 3. Driver message fallback (sqlite and untranslated drivers)
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint")
}

// IsTransient reports whether err is a network or availability failure that
// may succeed when repeated.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == KindTransient
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception class
			return true
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgAdminShutdown, pgErr.Code == pgCannotConnectNow:
			return true
		}
		return false
	}

	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "connection reset") ||
		strings.Contains(errLower, "broken pipe") ||
		strings.Contains(errLower, "i/o timeout") ||
		strings.Contains(errLower, "no such host")
}
