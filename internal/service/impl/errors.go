package impl

import (
	"errors"

	"authcore/internal/store"
)

var (
	ErrEmptyPassword     = errors.New("empty password")
	ErrInvalidIterations = errors.New("iterations must be positive")
	ErrInvalidSecret     = errors.New("invalid totp secret")
)

// notFoundAs replaces store.ErrRecordNotFound with target and passes any
// other error through untouched.
func notFoundAs(err, target error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return target
	}
	return err
}
