// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode defines supported error codes used across services
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeConflict is for generic editing conflicts beyond duplicate key
	ErrorCodeConflict

	// ErrorCodeUnauthorized is for auth failures
	ErrorCodeUnauthorized

	// ErrorCodeForbidden is for access control failures
	ErrorCodeForbidden

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for validation failures (input data)
	ErrorCodeValidation

	// ErrorCodeJSON is for JSON parsing/validation errors
	ErrorCodeJSON

	// ErrorCodeNotFound is for missing resources
	ErrorCodeNotFound

	// ErrorCodeDuplicateKey is for unique constraint violations
	ErrorCodeDuplicateKey

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeTimeout is for deadline expiry at any pipeline stage
	ErrorCodeTimeout

	// ErrorCodeSecurity is for SQL safety rejections; the message carries rule ids only
	ErrorCodeSecurity

	// ErrorCodeGenerationFailed is for exhausted SQL generation strategies
	ErrorCodeGenerationFailed

	// ErrorCodeRuntime is for database failures while executing generated SQL
	ErrorCodeRuntime

	// ErrorCodeBackpressure is for streaming clients that cannot keep up
	ErrorCodeBackpressure

	// ErrorCodeCanceled is for client disconnect before completion
	ErrorCodeCanceled

	// ErrorCodeNoRuleMatch is for rule generation finding no template
	ErrorCodeNoRuleMatch

	// ErrorCodeLLMUnavailable is for LLM transport failures that are not retryable
	ErrorCodeLLMUnavailable

	// ErrorCodeLLMTimeout is for LLM calls exceeding their own deadline
	ErrorCodeLLMTimeout

	// ErrorCodeLLMMalformed is for LLM output that cannot be parsed or repaired
	ErrorCodeLLMMalformed

	// ErrorCodeTransientNetwork is for transient transport failures worth retrying
	ErrorCodeTransientNetwork
)

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeInvalidArgument:
		return http.StatusUnprocessableEntity
	case ErrorCodeDuplicateKey, ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeValidation, ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeSecurity:
		return http.StatusBadRequest
	case ErrorCodeTimeout, ErrorCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodeGenerationFailed, ErrorCodeNoRuleMatch, ErrorCodeLLMUnavailable, ErrorCodeTransientNetwork:
		return http.StatusServiceUnavailable
	case ErrorCodeLLMMalformed:
		return http.StatusBadGateway
	case ErrorCodeBackpressure:
		return http.StatusServiceUnavailable
	case ErrorCodeCanceled:
		// client closed request (nginx convention)
		return 499
	case ErrorCodeDB, ErrorCodeRuntime, ErrorCodePanic, ErrorCodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Wire is the JSON-serializable form returned by the API
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// ToWire converts an *Error to a Wire payload
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire (no error)
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithFieldChain sets field on *Error or wraps a foreign error into an *Error with Unknown code (copy-on-write)
func WithFieldChain(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return &Error{code: ErrorCodeUnknown, msg: err.Error(), field: field, orig: err}
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Validationf returns a request validation error
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// DuplicateKeyf returns a duplicate key error
func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }

// DBf returns a general database error
func DBf(format string, a ...any) error { return Newf(ErrorCodeDB, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf returns an unauthorized error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// Forbiddenf returns a forbidden error
func Forbiddenf(format string, a ...any) error { return Newf(ErrorCodeForbidden, format, a...) }

// Conflictf returns a conflict error
func Conflictf(format string, a ...any) error { return Newf(ErrorCodeConflict, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// Timeoutf returns a deadline expiry error
func Timeoutf(format string, a ...any) error { return Newf(ErrorCodeTimeout, format, a...) }

// Securityf returns a SQL safety rejection error; pass rule ids, never SQL text
func Securityf(format string, a ...any) error { return Newf(ErrorCodeSecurity, format, a...) }

// GenerationFailedf returns a strategies-exhausted error
func GenerationFailedf(format string, a ...any) error {
	return Newf(ErrorCodeGenerationFailed, format, a...)
}

// Runtimef returns a query execution error
func Runtimef(format string, a ...any) error { return Newf(ErrorCodeRuntime, format, a...) }

// Backpressuref returns a slow-consumer error
func Backpressuref(format string, a ...any) error { return Newf(ErrorCodeBackpressure, format, a...) }

// Canceledf returns a client-cancellation error
func Canceledf(format string, a ...any) error { return Newf(ErrorCodeCanceled, format, a...) }

// NoRuleMatchf returns a no-template-matched error
func NoRuleMatchf(format string, a ...any) error { return Newf(ErrorCodeNoRuleMatch, format, a...) }

// LLMUnavailablef returns a non-retryable LLM transport error
func LLMUnavailablef(format string, a ...any) error { return Newf(ErrorCodeLLMUnavailable, format, a...) }

// LLMTimeoutf returns an LLM deadline error
func LLMTimeoutf(format string, a ...any) error { return Newf(ErrorCodeLLMTimeout, format, a...) }

// LLMMalformedf returns an unparseable-LLM-output error
func LLMMalformedf(format string, a ...any) error { return Newf(ErrorCodeLLMMalformed, format, a...) }

// TransientNetworkf returns a retryable transport error
func TransientNetworkf(format string, a ...any) error {
	return Newf(ErrorCodeTransientNetwork, format, a...)
}

// HTTP bundles status + wire in one shot (nice for handlers)
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Kind returns the stable taxonomy string used on the wire and in analytics
// error_kind fields. Codes outside the public taxonomy collapse to "runtime"
func Kind(err error) string {
	switch CodeOf(err) {
	case ErrorCodeValidation, ErrorCodeJSON, ErrorCodeInvalidArgument:
		return "validation"
	case ErrorCodeSecurity:
		return "security"
	case ErrorCodeGenerationFailed, ErrorCodeNoRuleMatch, ErrorCodeLLMUnavailable,
		ErrorCodeLLMMalformed, ErrorCodeTransientNetwork:
		return "generation_failed"
	case ErrorCodeTimeout, ErrorCodeLLMTimeout:
		return "timeout"
	case ErrorCodeBackpressure:
		return "backpressure"
	case ErrorCodeCanceled:
		return "canceled"
	default:
		return "runtime"
	}
}

// Retry semantics

// Retryable reports whether the error is retryable
// Code-level retry classes first, then backend-specific logic (pg.go IsRetryable)
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeLLMTimeout, ErrorCodeLLMMalformed, ErrorCodeTransientNetwork:
		return true
	case ErrorCodeValidation, ErrorCodeSecurity, ErrorCodeCanceled:
		return false
	}
	return IsRetryable(err)
}
