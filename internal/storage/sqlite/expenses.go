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

func (s *Store) insertExpense(ctx context.Context, raw record.Raw) (record.Raw, error) {
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
	return s.getExpense(ctx, e.ID)
}

func insertExpenseRows(ctx context.Context, db execer, e models.Expense) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, date, created_by, settled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GroupID, e.Description, e.Amount.String(), e.PaidBy, e.Date, e.CreatedBy, e.Settled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, memberID := range e.SplitBetween {
		_, err = db.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, member_id, position) VALUES (?, ?, ?)",
			e.ID, memberID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}
	return nil
}

func (s *Store) getExpense(ctx context.Context, id string) (record.Raw, error) {
	var eid, groupID, description, amount, paidBy, createdBy string
	var date int64
	var settled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, description, amount, paid_by, date, created_by, settled
		 FROM expenses WHERE id = ?`, id,
	).Scan(&eid, &groupID, &description, &amount, &paidBy, &date, &createdBy, &settled)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	split, err := s.expenseSplit(ctx, eid)
	if err != nil {
		return nil, err
	}
	return record.Raw{
		"id":            eid,
		"group_id":      groupID,
		"description":   description,
		"amount":        amount,
		"paid_by":       paidBy,
		"split_between": split,
		"date":          date,
		"created_by":    createdBy,
		"settled":       settled,
	}, nil
}

func (s *Store) expenseSplit(ctx context.Context, expenseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM expense_splits WHERE expense_id = ? ORDER BY position",
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense split: %w", err)
	}
	return split, nil
}

func (s *Store) listExpenses(ctx context.Context, groupID string) ([]record.Raw, error) {
	query := "SELECT id FROM expenses ORDER BY date, rowid"
	args := []any{}
	if groupID != "" {
		query = "SELECT id FROM expenses WHERE group_id = ? ORDER BY date, rowid"
		args = append(args, groupID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	var out []record.Raw
	for _, id := range ids {
		e, err := s.getExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
