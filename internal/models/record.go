package models

import (
	"time"

	"gorm.io/datatypes"
)

// Record is one entity of a named collection in the durable tier.
type Record struct {
	Collection string         `gorm:"primaryKey;size:64;index:idx_records_natural_key,priority:1"`
	ID         string         `gorm:"primaryKey;size:64"`
	NaturalKey string         `gorm:"size:512;index:idx_records_natural_key,priority:2"`
	Payload    datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "records" }

// MetaEntry holds flags kept outside the domain collections.
type MetaEntry struct {
	Key       string `gorm:"column:meta_key;primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (MetaEntry) TableName() string { return "meta" }

// Backup kinds.
const (
	BackupKindAuto       = "auto"
	BackupKindPreRestore = "pre-restore"
)

// BackupEntry stores a dated snapshot document.
type BackupEntry struct {
	Stamp     string         `gorm:"primaryKey;size:64"`
	Kind      string         `gorm:"size:32;not null;index"`
	TakenAt   time.Time      `gorm:"not null;index"`
	Records   int            `gorm:"not null"`
	Document  datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

// TableName pins the table name.
func (BackupEntry) TableName() string { return "backups" }
