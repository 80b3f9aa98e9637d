// Package apperr defines the error taxonomy shared by the store, client and editor.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrTransientIO      = errors.New("transient i/o failure")
	ErrValidationFailed = errors.New("validation failed")
)

// Transient marks err as a retryable network or store failure.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransientIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientIO, err)
}

// Validation marks err as a rejected input.
func Validation(err error) error {
	if err == nil || errors.Is(err, ErrValidationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

// Retryable reports whether err may succeed if the same operation is attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientIO)
}
