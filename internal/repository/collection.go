package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
)

// Collection is a typed view over one named collection of a RecordStore.
type Collection[T any] struct {
	store RecordStore
	name  CollectionName
}

// NewCollection binds a typed view to the named collection.
func NewCollection[T any](store RecordStore, name CollectionName) Collection[T] {
	return Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c Collection[T]) Name() CollectionName {
	return c.name
}

// Put inserts or overwrites the value stored under id.
func (c Collection[T]) Put(ctx context.Context, id string, value T) error {
	return c.store.Put(ctx, c.name, id, value)
}

// Get returns the value stored under id or ErrNotFound.
func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var value T
	if err := c.store.Get(ctx, c.name, id, &value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// Delete removes the value stored under id, if any.
func (c Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// Clear removes every value of the collection.
func (c Collection[T]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.name)
}

// Count returns the number of stored values.
func (c Collection[T]) Count(ctx context.Context) (int64, error) {
	return c.store.Count(ctx, c.name)
}

// All lazily decodes every value of the collection. Each call starts a fresh scan.
func (c Collection[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for raw, err := range c.store.Scan(ctx, c.name) {
			var value T
			if err != nil {
				yield(value, err)
				return
			}
			if err := json.Unmarshal(raw.Payload, &value); err != nil {
				yield(value, fmt.Errorf("decode %s/%s: %w", c.name, raw.ID, err))
				return
			}
			if !yield(value, nil) {
				return
			}
		}
	}
}

// List materialises every value of the collection.
func (c Collection[T]) List(ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	for value, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	return items, nil
}

// Find scans the collection and returns the first value accepted by match. The
// scan stops at the first match.
func (c Collection[T]) Find(ctx context.Context, match func(T) bool) (T, error) {
	for value, err := range c.All(ctx) {
		if err != nil {
			var zero T
			return zero, err
		}
		if match(value) {
			return value, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// FindByKey resolves a natural key through the secondary index.
func (c Collection[T]) FindByKey(ctx context.Context, key string) (T, string, error) {
	id, err := c.store.Lookup(ctx, c.name, key)
	if err != nil {
		var zero T
		return zero, "", err
	}
	value, err := c.Get(ctx, id)
	if err != nil {
		return value, "", err
	}
	return value, id, nil
}
