package dto

import "time"

// BackupInfo describes one stored automatic backup.
type BackupInfo struct {
	Stamp   string    `json:"stamp"`
	TakenAt time.Time `json:"takenAt"`
	Records int       `json:"records"`
}

// LastBackupInfo is the marker written after every successful automatic backup.
type LastBackupInfo struct {
	Stamp   string    `json:"stamp"`
	TakenAt time.Time `json:"takenAt"`
	Records int       `json:"records"`
}

// BackupToggleRequest switches automatic backups on or off.
type BackupToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// BackupStatusResponse reports the scheduler state.
type BackupStatusResponse struct {
	Enabled bool            `json:"enabled"`
	Last    *LastBackupInfo `json:"last,omitempty"`
	Backups []BackupInfo    `json:"backups"`
}
