package services

import (
	"errors"
	"fmt"

	"commission-art-backend/internal/supabase"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrChatUnavailable = errors.New("chat is not available for this order")
	ErrUnauthenticated = errors.New("invalid email or password")
)

// StoreError reports a failed call to the database, media store or identity
// provider.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeError turns a missing row into ErrNotFound and wraps anything else.
func storeError(op string, err error) error {
	if errors.Is(err, supabase.ErrNoRows) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}
