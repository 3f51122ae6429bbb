package borrow

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeDurationOutOfRange  Code = "DURATION_OUT_OF_RANGE"
	CodeBookNotFound        Code = "BOOK_NOT_FOUND"
	CodeAccountNotFound     Code = "ACCOUNT_NOT_FOUND"
	CodeBorrowNotFound      Code = "BORROW_NOT_FOUND"
	CodeDuplicateLoan       Code = "DUPLICATE_LOAN"
	CodeBorrowLimitExceeded Code = "BORROW_LIMIT_EXCEEDED"
	CodeNoCopyAvailable     Code = "NO_COPY_AVAILABLE"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeForbidden           Code = "FORBIDDEN"
	CodeConflict            Code = "CONFLICT"
	CodeInternal            Code = "INTERNAL"
)

// Kind groups codes by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindConflict
	KindInvalidTransition
	KindForbidden
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches on Code, so errors.Is(err, ErrNoCopyAvailable) holds for any
// NO_COPY_AVAILABLE error regardless of message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

var (
	ErrDurationOutOfRange  = &APIError{Code: CodeDurationOutOfRange, Kind: KindValidation, Message: "duration must be within the allowed number of days"}
	ErrBookNotFound        = &APIError{Code: CodeBookNotFound, Kind: KindNotFound, Message: "book not found"}
	ErrAccountNotFound     = &APIError{Code: CodeAccountNotFound, Kind: KindNotFound, Message: "account not found"}
	ErrBorrowNotFound      = &APIError{Code: CodeBorrowNotFound, Kind: KindNotFound, Message: "borrow not found"}
	ErrDuplicateLoan       = &APIError{Code: CodeDuplicateLoan, Kind: KindBusinessRule, Message: "account already holds an active borrow of this book"}
	ErrBorrowLimitExceeded = &APIError{Code: CodeBorrowLimitExceeded, Kind: KindBusinessRule, Message: "account reached the active borrow limit"}
	ErrNoCopyAvailable     = &APIError{Code: CodeNoCopyAvailable, Kind: KindBusinessRule, Message: "no copy of this book is available"}
	ErrInvalidTransition   = &APIError{Code: CodeInvalidTransition, Kind: KindInvalidTransition, Message: "status change not allowed"}
	ErrForbidden           = &APIError{Code: CodeForbidden, Kind: KindForbidden, Message: "not allowed for this account"}

	// errConflict means the chosen copy was taken between read and commit.
	// The allocator retries it and never surfaces it.
	errConflict = &APIError{Code: CodeConflict, Kind: KindConflict, Message: "allocation conflict"}
)

func ErrInvalid(msg string) *APIError {
	return &APIError{Code: CodeInvalidArgument, Kind: KindValidation, Message: msg}
}

// ErrInternal wraps a storage failure. The cause stays available through
// errors.Unwrap but is not rendered to clients.
func ErrInternal(err error) *APIError {
	return &APIError{Code: CodeInternal, Kind: KindInternal, Message: "internal error, safe to retry", Err: err}
}

// withMessage copies a sentinel with a more specific message.
func withMessage(base *APIError, format string, args ...any) *APIError {
	cp := *base
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func KindOf(err error) Kind {
	var api *APIError
	if errors.As(err, &api) {
		return api.Kind
	}
	return KindInternal
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if !errors.As(err, &api) {
		return http.StatusInternalServerError
	}
	switch api.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBusinessRule, KindConflict:
		return http.StatusConflict
	case KindInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
