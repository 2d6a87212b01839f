package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError for clients and for the HTTP status mapping.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth_error"
	KindForbidden  Kind = "forbidden"
	KindGateway    Kind = "gateway_error"
	KindPayout     Kind = "payout_error"
	KindInternal   Kind = "internal_error"
)

// AppError is a custom error type that includes an HTTP status code and a machine-readable reason.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Taxonomy bucket
	Reason  string // Stable machine code, e.g. "seat_already_booked"
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same status code and reason,
// so a wrapped copy of a sentinel still matches it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
		Err:     err,
	}
}

// WithErr returns a copy of e that carries err as its cause.
func (e *AppError) WithErr(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

func Validation(reason, message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Reason: reason, Message: message}
}

// NotFound builds the not-found error for an entity, e.g. NotFound("student").
func NotFound(entity string) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Reason: entity + "_not_found", Message: entity + " not found"}
}

func Conflict(reason, message string) *AppError {
	return &AppError{Code: http.StatusConflict, Kind: KindConflict, Reason: reason, Message: message}
}

func Auth(reason, message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Kind: KindAuth, Reason: reason, Message: message}
}

func Gateway(reason, message string) *AppError {
	return &AppError{Code: http.StatusBadGateway, Kind: KindGateway, Reason: reason, Message: message}
}

func Payout(reason, message string) *AppError {
	return &AppError{Code: http.StatusBadGateway, Kind: KindPayout, Reason: reason, Message: message}
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func kindForCode(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusBadGateway:
		return KindGateway
	default:
		return KindInternal
	}
}
