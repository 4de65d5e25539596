package service

import "errors"

// Error kinds. Every *Error unwraps to one of these, so callers branch with
// errors.Is(err, ErrNotFound) and friends.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrEmptyCart      = errors.New("Cannot place an order with an empty cart.")
	ErrMissingProduct = errors.New("product is no longer available")
	ErrUnavailable    = errors.New("ordering is unavailable")
)

// Error is a domain failure with a caller-facing message. Field names the
// offending input for validation failures.
type Error struct {
	Kind  error
	Msg   string
	Field string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func validationError(field, msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg, Field: field}
}

func notFoundError(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

func forbiddenError(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}
