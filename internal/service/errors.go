package service

import "errors"

var (
	// ErrValidationFailure indicates malformed input. Importers skip such rows.
	ErrValidationFailure = errors.New("validation failure")
	// ErrPersistenceFailure indicates the settings tiers could not be kept in sync.
	ErrPersistenceFailure = errors.New("settings persistence failure")
	// ErrInvalidSnapshot rejects a snapshot before anything is cleared.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrImportFailed indicates a snapshot import failed after clearing started.
	ErrImportFailed = errors.New("snapshot import failed")
	// ErrBackupNotFound indicates no automatic backup exists for the requested date.
	ErrBackupNotFound = errors.New("backup not found")
)
