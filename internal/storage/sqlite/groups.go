package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

func (s *Store) insertGroup(ctx context.Context, raw record.Raw) (record.Raw, error) {
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
	return s.getGroup(ctx, g.ID)
}

func insertGroupRows(ctx context.Context, db execer, g models.Group) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, owner_id, created_at) VALUES (?, ?, ?, ?, ?)",
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
			"INSERT INTO group_members (group_id, member_id, name, email, status, position) VALUES (?, ?, ?, ?, ?, ?)",
			g.ID, memberID, m.Name, m.Email, string(m.Status), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

func (s *Store) getGroup(ctx context.Context, id string) (record.Raw, error) {
	var gid, name, description, ownerID string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, owner_id, created_at FROM groups WHERE id = ?", id,
	).Scan(&gid, &name, &description, &ownerID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.groupMembers(ctx, gid)
	if err != nil {
		return nil, err
	}
	return record.Raw{
		"id":          gid,
		"name":        name,
		"description": description,
		"owner_id":    ownerID,
		"created_at":  createdAt,
		"members":     members,
	}, nil
}

func (s *Store) groupMembers(ctx context.Context, groupID string) ([]record.Raw, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, name, email, status FROM group_members WHERE group_id = ? ORDER BY position",
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
		members = append(members, rawUser(id, name, email, status))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

func (s *Store) listGroups(ctx context.Context) ([]record.Raw, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM groups ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	var out []record.Raw
	for _, id := range ids {
		g, err := s.getGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
