package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"   // Authentication required or token rejected
	EFORBIDDEN    = "forbidden"      // Permission denied
	ENOTFOUND     = "not_found"      // Resource not found (or not owned by the caller)
	ECONFLICT     = "conflict"       // Resource conflict (e.g., duplicate email or slug)
	EQUOTA        = "quota_exceeded" // Plan limit reached
	ETOOLARGE     = "too_large"      // Request entity too large
	ERATELIMIT    = "rate_limit"     // Rate limit exceeded
	EINTERNAL     = "internal"       // Internal server error
	EBADGATEWAY   = "bad_gateway"    // Blob store rejected or failed an upload
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "feed.create")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return EQUOTA
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
// Internal errors never leak their details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe.Message()
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe.Op
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// =============================================================================
// Convenience constructors
// =============================================================================

// NotFound creates a not found error.
//
// Ownership failures use this too, so a resource owned by someone else is
// indistinguishable from one that does not exist.
func NotFound(op, resource string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// BadGateway creates an error for a failed call to an external service.
func BadGateway(err error, op, message string) *Error {
	return &Error{
		Code:    EBADGATEWAY,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// =============================================================================
// Quota errors
// =============================================================================

// QuotaError reports which plan limit rejected a write.
type QuotaError struct {
	Op    string
	Kind  QuotaKind
	Plan  string
	Limit int64 // Feed or episode count, or storage ceiling in MB
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message())
}

// Message returns the client-facing description of the exhausted limit.
func (e *QuotaError) Message() string {
	switch e.Kind {
	case QuotaFeeds:
		return fmt.Sprintf("Feed limit (%d) for plan %s has been reached.", e.Limit, e.Plan)
	case QuotaEpisodes:
		return fmt.Sprintf("Episode limit (%d) for this feed has been reached.", e.Limit)
	case QuotaStorage:
		return fmt.Sprintf("Not enough storage in plan %s (limit %d MB).", e.Plan, e.Limit)
	default:
		return "Plan limit reached."
	}
}

// QuotaExceeded creates a quota error for the given limit.
func QuotaExceeded(op string, kind QuotaKind, plan string, limit int64) *QuotaError {
	return &QuotaError{
		Op:    op,
		Kind:  kind,
		Plan:  plan,
		Limit: limit,
	}
}

// AsQuotaError extracts a QuotaError from the error chain.
func AsQuotaError(err error) (*QuotaError, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
