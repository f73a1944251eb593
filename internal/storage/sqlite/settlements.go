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

func (s *Store) insertSettlement(ctx context.Context, raw record.Raw) (record.Raw, error) {
	st := record.DecodeSettlement(raw)
	if st.ID == "" {
		st.ID = uuid.New().String()
	}

	if err := insertSettlementRow(ctx, s.db, st); err != nil {
		return nil, err
	}
	return s.getSettlement(ctx, st.ID)
}

func insertSettlementRow(ctx context.Context, db execer, st models.Settlement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_member, to_member, amount, date, confirmed, description, expense_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.GroupID, st.FromMember, st.ToMember, st.Amount.String(),
		st.Date, st.Confirmed, st.Description, st.ExpenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func (s *Store) getSettlement(ctx context.Context, id string) (record.Raw, error) {
	var sid, groupID, fromMember, toMember, amount, description, expenseID string
	var date int64
	var confirmed bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, from_member, to_member, amount, date, confirmed, description, expense_id
		 FROM settlements WHERE id = ?`, id,
	).Scan(&sid, &groupID, &fromMember, &toMember, &amount, &date, &confirmed, &description, &expenseID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return record.Raw{
		"id":          sid,
		"group_id":    groupID,
		"from_member": fromMember,
		"to_member":   toMember,
		"amount":      amount,
		"date":        date,
		"confirmed":   confirmed,
		"description": description,
		"expense_id":  expenseID,
	}, nil
}

func (s *Store) listSettlements(ctx context.Context, groupID string) ([]record.Raw, error) {
	query := "SELECT id FROM settlements ORDER BY date, rowid"
	args := []any{}
	if groupID != "" {
		query = "SELECT id FROM settlements WHERE group_id = ? ORDER BY date, rowid"
		args = append(args, groupID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan settlement id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	var out []record.Raw
	for _, id := range ids {
		st, err := s.getSettlement(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
