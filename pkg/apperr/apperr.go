// Package apperr defines the closed application error taxonomy and the
// normalizer that maps storage/driver errors into it. Callers branch on
// Code, never on backend-specific error shapes.
package apperr

import (
	"context"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Code identifies one class of application error.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeNetwork            Code = "NETWORK"
	CodeInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeUserExists         Code = "AUTH_USER_EXISTS"
	CodeWeakPassword       Code = "AUTH_WEAK_PASSWORD"
	CodeSessionMissing     Code = "AUTH_SESSION_MISSING"
	CodeConflict           Code = "DATABASE_CONFLICT"
	CodeNotFound           Code = "DATABASE_NOT_FOUND"
	CodeValidation         Code = "DATABASE_VALIDATION"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeRateLimit          Code = "RATE_LIMIT"
)

// Error is a normalized application error.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a normalized error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a normalized error preserving the original error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Postgres error codes (SQLSTATE).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInsufficientPriv    = "42501"
)

// MySQL error numbers.
const (
	myDupEntry        = 1062
	myNoReferencedRow = 1452
	myBadNull         = 1048
	myCheckViolated   = 3819
)

// Normalize converts any error into an *Error. It is total and idempotent:
// every non-nil input yields exactly one *Error, an already-normalized error
// passes through unchanged, and a nil input yields nil.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(CodeNotFound, "record not found", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(CodeConflict, "record already exists", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return Wrap(CodeNotFound, "referenced record not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return normalizePg(pgErr, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return normalizeMySQL(myErr, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return normalizeSQLite(liteErr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeNetwork, "operation timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(CodeNetwork, "network error: "+netErr.Error(), err)
	}

	return Wrap(CodeUnknown, err.Error(), err)
}

func normalizePg(pgErr *pgconn.PgError, err error) *Error {
	e := func(code Code, msg string) *Error {
		return &Error{Code: code, Message: msg, Details: pgErr.Detail, Err: err}
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return e(CodeConflict, "record already exists")
	case pgForeignKeyViolation:
		return e(CodeNotFound, "referenced record not found")
	case pgNotNullViolation, pgCheckViolation:
		return e(CodeValidation, "invalid record: "+pgErr.Message)
	case pgInsufficientPriv:
		return e(CodePermissionDenied, "permission denied")
	}
	return e(CodeUnknown, pgErr.Message)
}

func normalizeMySQL(myErr *mysql.MySQLError, err error) *Error {
	switch myErr.Number {
	case myDupEntry:
		return Wrap(CodeConflict, "record already exists", err)
	case myNoReferencedRow:
		return Wrap(CodeNotFound, "referenced record not found", err)
	case myBadNull, myCheckViolated:
		return Wrap(CodeValidation, "invalid record: "+myErr.Message, err)
	}
	return Wrap(CodeUnknown, myErr.Message, err)
}

func normalizeSQLite(liteErr sqlite3.Error, err error) *Error {
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return Wrap(CodeConflict, "record already exists", err)
	case sqlite3.ErrConstraintForeignKey:
		return Wrap(CodeNotFound, "referenced record not found", err)
	case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
		return Wrap(CodeValidation, "invalid record: "+liteErr.Error(), err)
	}
	if liteErr.Code == sqlite3.ErrConstraint {
		return Wrap(CodeConflict, "constraint violation", err)
	}
	return Wrap(CodeUnknown, liteErr.Error(), err)
}

// CodeOf returns the taxonomy code for err, normalizing it if needed.
func CodeOf(err error) Code {
	e := Normalize(err)
	if e == nil {
		return ""
	}
	return e.Code
}

// HasCode reports whether err normalizes to the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func IsConflict(err error) bool  { return HasCode(err, CodeConflict) }
func IsNotFound(err error) bool  { return HasCode(err, CodeNotFound) }
func IsNetwork(err error) bool   { return HasCode(err, CodeNetwork) }
func IsForbidden(err error) bool { return HasCode(err, CodePermissionDenied) }

// IsTransient reports whether err is worth retrying by default. Only
// network-class failures qualify; callers with more context pass their own
// classifier to the retry combinator.
func IsTransient(err error) bool {
	return HasCode(err, CodeNetwork)
}
