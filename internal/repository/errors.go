package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound signals a lookup miss. It is a normal control-flow result.
	ErrNotFound = errors.New("record not found")
	// ErrStorageFailure wraps failures of the underlying storage medium.
	ErrStorageFailure = errors.New("storage failure")
)

// storageError maps driver errors onto the repository error kinds.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
