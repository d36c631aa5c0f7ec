package domain

import "github.com/cockroachdb/errors"

// Base errors, mapped to API error codes
var (
	// BadParameterError is rendered as INVALID_REQUEST
	BadParameterError = errors.New("bad parameter")

	// UnAuthorizedError is rendered as INVALID_CREDENTIALS or BEARER_TOKEN_ERROR
	UnAuthorizedError = errors.New("unauthorized")

	// ForbiddenError is rendered with the http status code 403
	ForbiddenError = errors.New("forbidden")

	// NotFoundError is rendered as OBJECT_NOT_FOUND_IN_DATABASE
	NotFoundError = errors.New("not found")

	// ConflictError is rendered as INVALID_REQUEST
	ConflictError = errors.New("duplicate value")

	// TooManyAttemptsError is rendered as TOO_MANY_ATTEMPTS
	TooManyAttemptsError = errors.New("too many attempts")
)

// ErrEntityNotFound is wrapped by every "x not found" error
var ErrEntityNotFound = errors.Wrap(NotFoundError, "entity not found")

var (
	ErrUserNotFound    = errors.Wrap(ErrEntityNotFound, "user not found")
	ErrClientNotFound  = errors.Wrap(ErrEntityNotFound, "client not found")
	ErrServiceNotFound = errors.Wrap(ErrEntityNotFound, "service not found")
	ErrInvoiceNotFound = errors.Wrap(ErrEntityNotFound, "invoice not found")
	ErrSettingNotFound = errors.Wrap(ErrEntityNotFound, "setting not found")
)

// Authentication related errors
var (
	ErrInvalidCredentials = errors.Wrap(UnAuthorizedError, "invalid credentials")
	ErrAccountBlocked     = errors.Wrap(TooManyAttemptsError, "account temporarily blocked")
	ErrEmailTaken         = errors.Wrap(ConflictError, "email already in use")
)

// Invoice related errors
var (
	ErrInvalidInvoiceState = errors.Wrap(BadParameterError, "invalid invoice state")
	ErrInvoiceArchived     = errors.Wrap(BadParameterError, "invoice is archived")
)

// BadParameterf wraps BadParameterError with a formatted message
func BadParameterf(format string, args ...interface{}) error {
	return errors.Wrapf(BadParameterError, format, args...)
}
