package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/counsel-vault/internal/models"
)

// BackupRepository persists dated snapshot documents.
type BackupRepository interface {
	Save(ctx context.Context, entry *models.BackupEntry) error
	Get(ctx context.Context, stamp string) (models.BackupEntry, error)
	// List returns entries of the given kind without their documents, most recent first.
	List(ctx context.Context, kind string) ([]models.BackupEntry, error)
	Delete(ctx context.Context, stamps ...string) error
}

type backupRepository struct {
	db *gorm.DB
}

// NewBackupRepository constructs the backup repository.
func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Save(ctx context.Context, entry *models.BackupEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "taken_at", "records", "document"}),
	}).Create(entry).Error
	return storageError("backup save", err)
}

func (r *backupRepository) Get(ctx context.Context, stamp string) (models.BackupEntry, error) {
	var entry models.BackupEntry
	if err := r.db.WithContext(ctx).Where("stamp = ?", stamp).Take(&entry).Error; err != nil {
		return models.BackupEntry{}, storageError("backup get", err)
	}
	return entry, nil
}

func (r *backupRepository) List(ctx context.Context, kind string) ([]models.BackupEntry, error) {
	var entries []models.BackupEntry
	err := r.db.WithContext(ctx).
		Select("stamp", "kind", "taken_at", "records", "created_at").
		Where("kind = ?", kind).
		Order("taken_at DESC, stamp DESC").
		Find(&entries).Error
	if err != nil {
		return nil, storageError("backup list", err)
	}
	return entries, nil
}

func (r *backupRepository) Delete(ctx context.Context, stamps ...string) error {
	if len(stamps) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("stamp IN ?", stamps).Delete(&models.BackupEntry{}).Error
	return storageError("backup delete", err)
}
