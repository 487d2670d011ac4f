package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wrapped
// copies still match the predefined kinds below.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Election errors. Each one is a distinct kind callers can match with errors.Is.
var (
	ErrInvalidElection     = New("INVALID_ELECTION", http.StatusBadRequest, "invalid election")
	ErrNotAuthorized       = New("NOT_AUTHORIZED", http.StatusForbidden, "only active members can take part in elections")
	ErrSelfNomination      = New("SELF_NOMINATION", http.StatusConflict, "you can't nominate yourself")
	ErrDuplicateNominee    = New("DUPLICATE_NOMINEE", http.StatusConflict, "nominee has already been nominated")
	ErrAlreadyNominated    = New("ALREADY_NOMINATED", http.StatusConflict, "you can only nominate one person per election")
	ErrIneligibleNominee   = New("INELIGIBLE_NOMINEE", http.StatusUnprocessableEntity, "nominee is not eligible for this election")
	ErrOutsideWindow       = New("OUTSIDE_WINDOW", http.StatusConflict, "election is not accepting this action right now")
	ErrNotNominated        = New("NOT_NOMINATED", http.StatusUnprocessableEntity, "candidate has not been nominated")
	ErrAlreadyVoted        = New("ALREADY_VOTED", http.StatusConflict, "you can only vote once per election")
	ErrTransactionConflict = New("TRANSACTION_CONFLICT", http.StatusServiceUnavailable, "election was modified concurrently, please retry")
	ErrInvalidSchedule     = New("INVALID_SCHEDULE", http.StatusBadRequest, "election dates are not in order")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
