package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeUnknown          Code = "unknown"
	CodeInvalid          Code = "invalid"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeInternal         Code = "internal"
	CodeUnavailable      Code = "unavailable"
	CodeDeadline         Code = "deadline_exceeded"
	CodeAlreadyExists    Code = "already_exists"
	CodeTargetRejected   Code = "target_rejected"
	CodeSignatureInvalid Code = "signature_invalid"
)

// postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// AppError is a structured error type that carries a code, message, and optional metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost AppError in the chain.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Validation reports bad caller input.
func Validation(message string) *AppError { return New(CodeInvalid, message) }

// NotFound reports an unknown branch, session, commit or resource.
func NotFound(message string) *AppError { return New(CodeNotFound, message) }

// TargetUnreachable reports a network failure or timeout talking to a tenant webhook.
func TargetUnreachable(err error, message string) *AppError {
	return Wrap(err, CodeUnavailable, message)
}

// TargetRejected reports a tenant webhook that answered but declined the payload.
func TargetRejected(message string) *AppError { return New(CodeTargetRejected, message) }

// Signature reports a webhook signature or timestamp that failed verification.
func Signature(message string) *AppError { return New(CodeSignatureInvalid, message) }

// FromDB translates a gorm/pgx error into an AppError. notFound is used as the
// message when the query matched no rows. AppErrors pass through unchanged so
// transaction bodies can return them directly.
func FromDB(err error, notFound, message string) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return Wrap(err, CodeConflict, message+": duplicate key")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(err, CodeConflict, message+": duplicate key")
	}
	return Wrap(err, CodeInternal, message)
}

// HTTPStatus maps an error to the HTTP status the API answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized, CodeSignatureInvalid:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnavailable, CodeTargetRejected:
		return http.StatusBadGateway
	case CodeDeadline:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
