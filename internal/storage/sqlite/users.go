package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

func (s *Store) insertUser(ctx context.Context, raw record.Raw) (record.Raw, error) {
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
	return s.getUser(ctx, u.ID)
}

func insertUserRow(ctx context.Context, db execer, u models.Member) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, status) VALUES (?, ?, ?, ?)",
		u.ID, u.Name, u.Email, string(u.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, id string) (record.Raw, error) {
	var uid, name, email, status string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, status FROM users WHERE id = ?", id,
	).Scan(&uid, &name, &email, &status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rawUser(uid, name, email, status), nil
}

func (s *Store) listUsers(ctx context.Context) ([]record.Raw, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, status FROM users ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []record.Raw
	for rows.Next() {
		var id, name, email, status string
		if err := rows.Scan(&id, &name, &email, &status); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, rawUser(id, name, email, status))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return out, nil
}

func rawUser(id, name, email, status string) record.Raw {
	return record.Raw{
		"id":     id,
		"name":   name,
		"email":  email,
		"status": status,
	}
}
