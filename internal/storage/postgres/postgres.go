// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface via lib/pq. It mirrors the sqlite backend's
// schema with native types; records come back with snake_case keys.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'accepted'
);
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'invited',
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id)
);
CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    description TEXT NOT NULL,
    amount NUMERIC(14,4) NOT NULL,
    paid_by TEXT NOT NULL,
    date BIGINT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    settled BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (expense_id, member_id)
);
CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    from_member TEXT NOT NULL,
    to_member TEXT NOT NULL,
    amount NUMERIC(14,4) NOT NULL,
    date BIGINT NOT NULL,
    confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    description TEXT NOT NULL DEFAULT '',
    expense_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id);
`

// New connects with the given DSN, pings, and runs migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var tables = map[record.Collection]string{
	record.Users:       "users",
	record.Groups:      "groups",
	record.Expenses:    "expenses",
	record.Settlements: "settlements",
}

// List returns the records of a collection, optionally filtered by group.
func (s *Store) List(ctx context.Context, c record.Collection, filter storage.Filter) ([]record.Raw, error) {
	groupID := ""
	if filter != nil {
		if v, ok := filter["groupId"].(string); ok {
			groupID = v
		}
	}

	var (
		query string
		args  []any
	)
	switch c {
	case record.Users:
		query = "SELECT id FROM users ORDER BY id"
	case record.Groups:
		query = "SELECT id FROM groups ORDER BY created_at"
	case record.Expenses, record.Settlements:
		table := tables[c]
		if groupID != "" {
			query = "SELECT id FROM " + table + " WHERE group_id = $1 ORDER BY date, id"
			args = append(args, groupID)
		} else {
			query = "SELECT id FROM " + table + " ORDER BY date, id"
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", c, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c, err)
	}

	var out []record.Raw
	for _, id := range ids {
		r, err := s.Get(ctx, c, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Get retrieves a single record by id.
func (s *Store) Get(ctx context.Context, c record.Collection, id string) (record.Raw, error) {
	switch c {
	case record.Users:
		var uid, name, email, status string
		err := s.db.QueryRowContext(ctx,
			"SELECT id, name, email, status FROM users WHERE id = $1", id,
		).Scan(&uid, &name, &email, &status)
		if err != nil {
			return nil, wrapGetErr(c, id, err)
		}
		return record.Raw{"id": uid, "name": name, "email": email, "status": status}, nil

	case record.Groups:
		var gid, name, description, ownerID string
		var createdAt int64
		err := s.db.QueryRowContext(ctx,
			"SELECT id, name, description, owner_id, created_at FROM groups WHERE id = $1", id,
		).Scan(&gid, &name, &description, &ownerID, &createdAt)
		if err != nil {
			return nil, wrapGetErr(c, id, err)
		}
		members, err := s.groupMembers(ctx, gid)
		if err != nil {
			return nil, err
		}
		return record.Raw{
			"id": gid, "name": name, "description": description,
			"owner_id": ownerID, "created_at": createdAt, "members": members,
		}, nil

	case record.Expenses:
		var eid, groupID, description, amount, paidBy, createdBy string
		var date int64
		var settled bool
		err := s.db.QueryRowContext(ctx,
			`SELECT id, group_id, description, amount::text, paid_by, date, created_by, settled
			 FROM expenses WHERE id = $1`, id,
		).Scan(&eid, &groupID, &description, &amount, &paidBy, &date, &createdBy, &settled)
		if err != nil {
			return nil, wrapGetErr(c, id, err)
		}
		split, err := s.expenseSplit(ctx, eid)
		if err != nil {
			return nil, err
		}
		return record.Raw{
			"id": eid, "group_id": groupID, "description": description,
			"amount": amount, "paid_by": paidBy, "split_between": split,
			"date": date, "created_by": createdBy, "settled": settled,
		}, nil

	case record.Settlements:
		var sid, groupID, fromMember, toMember, amount, description, expenseID string
		var date int64
		var confirmed bool
		err := s.db.QueryRowContext(ctx,
			`SELECT id, group_id, from_member, to_member, amount::text, date, confirmed, description, expense_id
			 FROM settlements WHERE id = $1`, id,
		).Scan(&sid, &groupID, &fromMember, &toMember, &amount, &date, &confirmed, &description, &expenseID)
		if err != nil {
			return nil, wrapGetErr(c, id, err)
		}
		return record.Raw{
			"id": sid, "group_id": groupID, "from_member": fromMember,
			"to_member": toMember, "amount": amount, "date": date,
			"confirmed": confirmed, "description": description, "expense_id": expenseID,
		}, nil
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

func wrapGetErr(c record.Collection, id string, err error) error {
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", c, err)
}

func (s *Store) groupMembers(ctx context.Context, groupID string) ([]record.Raw, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, name, email, status FROM group_members WHERE group_id = $1 ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	members := []record.Raw{}
	for rows.Next() {
		var id, name, email, status string
		if err := rows.Scan(&id, &name, &email, &status); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, record.Raw{"id": id, "name": name, "email": email, "status": status})
	}
	return members, rows.Err()
}

func (s *Store) expenseSplit(ctx context.Context, expenseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM expense_splits WHERE expense_id = $1 ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense split: %w", err)
	}
	defer rows.Close()

	split := []string{}
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		split = append(split, memberID)
	}
	return split, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx so row writers can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert persists a new record and returns it as stored.
func (s *Store) Insert(ctx context.Context, c record.Collection, raw record.Raw) (record.Raw, error) {
	switch c {
	case record.Users:
		u := record.DecodeMember(raw)
		if u.ID == "" {
			u.ID = uuid.New().String()
		}
		if u.Status == "" {
			u.Status = "accepted"
		}
		if err := insertUserRow(ctx, s.db, u); err != nil {
			return nil, err
		}
		return s.Get(ctx, c, u.ID)

	case record.Groups:
		g := record.DecodeGroup(raw)
		if g.ID == "" {
			g.ID = uuid.New().String()
		}
		if g.CreatedAt == 0 {
			g.CreatedAt = time.Now().Unix()
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := insertGroupRows(ctx, tx, g); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return s.Get(ctx, c, g.ID)

	case record.Expenses:
		e := record.DecodeExpense(raw)
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := insertExpenseRows(ctx, tx, e); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return s.Get(ctx, c, e.ID)

	case record.Settlements:
		st := record.DecodeSettlement(raw)
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		if err := insertSettlementRow(ctx, s.db, st); err != nil {
			return nil, err
		}
		return s.Get(ctx, c, st.ID)
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

func insertUserRow(ctx context.Context, db execer, u models.Member) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, status) VALUES ($1, $2, $3, $4)",
		u.ID, u.Name, u.Email, string(u.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func insertGroupRows(ctx context.Context, db execer, g models.Group) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, owner_id, created_at) VALUES ($1, $2, $3, $4, $5)",
		g.ID, g.Name, g.Description, g.OwnerID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	for i, m := range g.Members {
		memberID := m.ID
		if memberID == "" {
			memberID = uuid.New().String()
		}
		_, err = db.ExecContext(ctx,
			"INSERT INTO group_members (group_id, member_id, name, email, status, position) VALUES ($1, $2, $3, $4, $5, $6)",
			g.ID, memberID, m.Name, m.Email, string(m.Status), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

func insertExpenseRows(ctx context.Context, db execer, e models.Expense) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, date, created_by, settled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.GroupID, e.Description, e.Amount.String(), e.PaidBy, e.Date, e.CreatedBy, e.Settled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	for i, memberID := range e.SplitBetween {
		_, err = db.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, member_id, position) VALUES ($1, $2, $3)",
			e.ID, memberID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}
	return nil
}

func insertSettlementRow(ctx context.Context, db execer, st models.Settlement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_member, to_member, amount, date, confirmed, description, expense_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		st.ID, st.GroupID, st.FromMember, st.ToMember, st.Amount.String(),
		st.Date, st.Confirmed, st.Description, st.ExpenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// Update merges the fields present in partial into the stored record and
// rewrites it inside a single transaction, so a failed rewrite leaves the
// stored record intact.
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

// deleteRows clears child tables explicitly rather than relying on cascade
// semantics, keeping it symmetric with the sqlite backend.
func (s *Store) deleteRows(ctx context.Context, db execer, c record.Collection, id string) error {
	switch c {
	case record.Groups:
		if _, err := db.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
	case record.Expenses:
		if _, err := db.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete expense splits: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM "+tables[c]+" WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", c, err)
	}
	return nil
}

func (s *Store) insertRows(ctx context.Context, db execer, c record.Collection, raw record.Raw) error {
	switch c {
	case record.Users:
		return insertUserRow(ctx, db, record.DecodeMember(raw))
	case record.Groups:
		return insertGroupRows(ctx, db, record.DecodeGroup(raw))
	case record.Expenses:
		return insertExpenseRows(ctx, db, record.DecodeExpense(raw))
	case record.Settlements:
		return insertSettlementRow(ctx, db, record.DecodeSettlement(raw))
	}
	return fmt.Errorf("unknown collection %q", c)
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, c record.Collection, id string) error {
	table, ok := tables[c]
	if !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", c, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s delete: %w", c, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
	}
	return nil
}
