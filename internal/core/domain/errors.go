package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrExhaustedCodeSpace = errors.New("exhausted order code space")
	ErrRepositoryConflict = errors.New("repository conflict")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrCodeTaken          = errors.New("order code taken")
)

var (
	ErrInvalidTableCode = fmt.Errorf("%w: invalid table code", ErrNotFound)
	ErrEmptyItems       = fmt.Errorf("%w: order has no items", ErrInvalidInput)
	ErrInvalidCode      = fmt.Errorf("%w: malformed order code", ErrInvalidInput)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	ErrUnknownMenuItem  = fmt.Errorf("%w: unknown menu item", ErrInvalidInput)
	ErrItemUnavailable  = fmt.Errorf("%w: menu item out of stock", ErrInvalidInput)
)

// TransitionError names the field whose requested change was rejected.
type TransitionError struct {
	Field  string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: %s %s -> %s", e.Field, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
