package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/counsel-vault/internal/models"
)

// CollectionName identifies a named collection of the record store.
type CollectionName string

// Collection names shared by the store, the snapshot document, and the API.
const (
	CollectionStudents    CollectionName = "students"
	CollectionUsers       CollectionName = "users"
	CollectionSettings    CollectionName = "settings"
	CollectionTests       CollectionName = "tests"
	CollectionTestResults CollectionName = "testResults"
	CollectionGrades      CollectionName = "grades"
)

// Collections lists every domain collection.
var Collections = []CollectionName{
	CollectionStudents,
	CollectionUsers,
	CollectionSettings,
	CollectionTests,
	CollectionTestResults,
	CollectionGrades,
}

// RawRecord is an undecoded entry yielded by Scan.
type RawRecord struct {
	ID         string
	NaturalKey string
	Payload    json.RawMessage
}

// RecordStore provides durable CRUD over named collections. Values are stored as
// JSON; values implementing models.NaturalKeyer are indexed by their natural key.
type RecordStore interface {
	Put(ctx context.Context, collection CollectionName, id string, value any) error
	Get(ctx context.Context, collection CollectionName, id string, dest any) error
	Delete(ctx context.Context, collection CollectionName, id string) error
	// Scan yields every record of the collection. Breaking out of the loop stops
	// the underlying query. Callers must not write to the store while iterating.
	Scan(ctx context.Context, collection CollectionName) iter.Seq2[RawRecord, error]
	Lookup(ctx context.Context, collection CollectionName, naturalKey string) (string, error)
	Clear(ctx context.Context, collection CollectionName) error
	Count(ctx context.Context, collection CollectionName) (int64, error)
	WithTx(ctx context.Context, fn func(tx RecordStore) error) error
}

type recordStore struct {
	db *gorm.DB
}

// NewRecordStore constructs a record store over the durable tier.
func NewRecordStore(db *gorm.DB) RecordStore {
	return &recordStore{db: db}
}

func (s *recordStore) Put(ctx context.Context, collection CollectionName, id string, value any) error {
	if id == "" {
		return fmt.Errorf("put %s: record id must not be empty", collection)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	record := models.Record{
		Collection: string(collection),
		ID:         id,
		NaturalKey: naturalKeyOf(value),
		Payload:    datatypes.JSON(payload),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"natural_key", "payload", "updated_at"}),
	}).Create(&record).Error

	return storageError("put", err)
}

func (s *recordStore) Get(ctx context.Context, collection CollectionName, id string, dest any) error {
	var record models.Record
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", string(collection), id).
		Take(&record).Error
	if err != nil {
		return storageError("get", err)
	}

	if err := json.Unmarshal(record.Payload, dest); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *recordStore) Delete(ctx context.Context, collection CollectionName, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", string(collection), id).
		Delete(&models.Record{}).Error
	return storageError("delete", err)
}

func (s *recordStore) Scan(ctx context.Context, collection CollectionName) iter.Seq2[RawRecord, error] {
	return func(yield func(RawRecord, error) bool) {
		rows, err := s.db.WithContext(ctx).
			Model(&models.Record{}).
			Where("collection = ?", string(collection)).
			Order("created_at, id").
			Rows()
		if err != nil {
			yield(RawRecord{}, storageError("scan", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var record models.Record
			if err := s.db.ScanRows(rows, &record); err != nil {
				yield(RawRecord{}, storageError("scan", err))
				return
			}

			raw := RawRecord{
				ID:         record.ID,
				NaturalKey: record.NaturalKey,
				Payload:    json.RawMessage(record.Payload),
			}
			if !yield(raw, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(RawRecord{}, storageError("scan", err))
		}
	}
}

func (s *recordStore) Lookup(ctx context.Context, collection CollectionName, naturalKey string) (string, error) {
	if naturalKey == "" {
		return "", ErrNotFound
	}

	var record models.Record
	err := s.db.WithContext(ctx).
		Select("id").
		Where("collection = ? AND natural_key = ?", string(collection), naturalKey).
		Order("created_at, id").
		Take(&record).Error
	if err != nil {
		return "", storageError("lookup", err)
	}

	return record.ID, nil
}

func (s *recordStore) Clear(ctx context.Context, collection CollectionName) error {
	err := s.db.WithContext(ctx).
		Where("collection = ?", string(collection)).
		Delete(&models.Record{}).Error
	return storageError("clear", err)
}

func (s *recordStore) Count(ctx context.Context, collection CollectionName) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("collection = ?", string(collection)).
		Count(&total).Error
	if err != nil {
		return 0, storageError("count", err)
	}
	return total, nil
}

func (s *recordStore) WithTx(ctx context.Context, fn func(tx RecordStore) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&recordStore{db: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return storageError("commit", err)
}

func naturalKeyOf(value any) string {
	if keyer, ok := value.(models.NaturalKeyer); ok {
		return keyer.NaturalKey()
	}
	return ""
}
