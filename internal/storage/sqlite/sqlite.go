// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface using the pure Go driver (no CGO).
//
// Records come back with snake_case keys, the driver's native
// convention; callers normalize through the record package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store with the given database path. It creates the
// parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the records of a collection, optionally filtered by group.
func (s *Store) List(ctx context.Context, c record.Collection, filter storage.Filter) ([]record.Raw, error) {
	switch c {
	case record.Users:
		return s.listUsers(ctx)
	case record.Groups:
		return s.listGroups(ctx)
	case record.Expenses:
		return s.listExpenses(ctx, groupFilter(filter))
	case record.Settlements:
		return s.listSettlements(ctx, groupFilter(filter))
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// Get retrieves a single record by id.
func (s *Store) Get(ctx context.Context, c record.Collection, id string) (record.Raw, error) {
	switch c {
	case record.Users:
		return s.getUser(ctx, id)
	case record.Groups:
		return s.getGroup(ctx, id)
	case record.Expenses:
		return s.getExpense(ctx, id)
	case record.Settlements:
		return s.getSettlement(ctx, id)
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// Insert persists a new record, assigning id and timestamps when absent,
// and returns it as stored.
func (s *Store) Insert(ctx context.Context, c record.Collection, raw record.Raw) (record.Raw, error) {
	switch c {
	case record.Users:
		return s.insertUser(ctx, raw)
	case record.Groups:
		return s.insertGroup(ctx, raw)
	case record.Expenses:
		return s.insertExpense(ctx, raw)
	case record.Settlements:
		return s.insertSettlement(ctx, raw)
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// Update merges the fields present in partial into the stored record and
// returns the result. The old rows are replaced inside one transaction,
// so a failed update leaves the stored record untouched.
func (s *Store) Update(ctx context.Context, c record.Collection, id string, partial record.Raw) (record.Raw, error) {
	existing, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	merged := record.Merge(c, existing, partial)
	merged["id"] = id

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteRows(ctx, tx, c, id); err != nil {
		return nil, err
	}
	if err := s.insertRows(ctx, tx, c, merged); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, c, id)
}

// deleteRows removes a record and its child rows within the caller's
// transaction. Child tables are cleared explicitly rather than relying
// on the foreign_keys pragma being set on every pooled connection.
func (s *Store) deleteRows(ctx context.Context, tx *sql.Tx, c record.Collection, id string) error {
	switch c {
	case record.Groups:
		if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
	case record.Expenses:
		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete expense splits: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tables[c]+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", c, err)
	}
	return nil
}

// insertRows writes a canonical record's rows within the caller's
// transaction.
func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, c record.Collection, raw record.Raw) error {
	switch c {
	case record.Users:
		return insertUserRow(ctx, tx, record.DecodeMember(raw))
	case record.Groups:
		return insertGroupRows(ctx, tx, record.DecodeGroup(raw))
	case record.Expenses:
		return insertExpenseRows(ctx, tx, record.DecodeExpense(raw))
	case record.Settlements:
		return insertSettlementRow(ctx, tx, record.DecodeSettlement(raw))
	}
	return fmt.Errorf("unknown collection %q", c)
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, c record.Collection, id string) error {
	table, ok := tables[c]
	if !ok {
		return fmt.Errorf("unknown collection %q", c)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check %s existence: %w", c, err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", c, err)
	}
	return nil
}

// execer is the subset of *sql.DB and *sql.Tx the row writers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var tables = map[record.Collection]string{
	record.Users:       "users",
	record.Groups:      "groups",
	record.Expenses:    "expenses",
	record.Settlements: "settlements",
}

// groupFilter extracts the group id constraint, the only filter the
// core uses. Empty string means no constraint.
func groupFilter(filter storage.Filter) string {
	if filter == nil {
		return ""
	}
	for _, key := range []string{"groupId", "group_id", "GROUP_ID"} {
		if v, ok := filter[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
