// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tallyhq/tally/internal/record"
)

// ErrNotFound is returned by Get, Update and Delete when no record with
// the given id exists in the collection.
var ErrNotFound = errors.New("storage: record not found")

// Filter restricts List to records whose canonical fields equal the
// given values. A nil or empty filter matches everything. The only
// filter the core relies on is {"groupId": <id>}.
type Filter map[string]any

// Store defines the persistence contract the core consumes. Records are
// exchanged as loosely typed raw maps; backends are free to use any
// field casing, and all consumers normalize through the record package.
//
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// in-memory) without changing anything above it.
type Store interface {
	// List returns all records of a collection matching the filter, in
	// the backend's natural order.
	List(ctx context.Context, c record.Collection, filter Filter) ([]record.Raw, error)

	// Get retrieves a single record by id.
	Get(ctx context.Context, c record.Collection, id string) (record.Raw, error)

	// Insert persists a new record and returns it as stored. Backends
	// assign an id and creation timestamp when absent.
	Insert(ctx context.Context, c record.Collection, raw record.Raw) (record.Raw, error)

	// Update merges the partial record into the stored one and returns
	// the result. Fields absent from partial keep their prior values.
	Update(ctx context.Context, c record.Collection, id string, partial record.Raw) (record.Raw, error)

	// Delete removes a record by id.
	Delete(ctx context.Context, c record.Collection, id string) error

	// Close releases any resources held by the store.
	Close() error
}
