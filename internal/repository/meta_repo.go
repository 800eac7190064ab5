package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/counsel-vault/internal/models"
)

// MetaRepository stores flags that live outside the domain collections.
type MetaRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type metaRepository struct {
	db *gorm.DB
}

// NewMetaRepository constructs the meta repository.
func NewMetaRepository(db *gorm.DB) MetaRepository {
	return &metaRepository{db: db}
}

func (r *metaRepository) Get(ctx context.Context, key string) (string, error) {
	var entry models.MetaEntry
	if err := r.db.WithContext(ctx).Where("meta_key = ?", key).Take(&entry).Error; err != nil {
		return "", storageError("meta get", err)
	}
	return entry.Value, nil
}

func (r *metaRepository) Set(ctx context.Context, key, value string) error {
	entry := models.MetaEntry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	return storageError("meta set", err)
}

func (r *metaRepository) Delete(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("meta_key = ?", key).Delete(&models.MetaEntry{}).Error
	return storageError("meta delete", err)
}
