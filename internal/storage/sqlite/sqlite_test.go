package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "tally-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	var groupID string
	t.Run("Insert group generates id and timestamps", func(t *testing.T) {
		got, err := store.Insert(ctx, record.Groups, record.Raw{
			"name":     "Trip",
			"owner_id": "alice",
			"members": []any{
				map[string]any{"id": "alice", "name": "Alice", "email": "alice@example.com", "status": "accepted"},
				map[string]any{"id": "bob", "name": "Bob", "status": "invited"},
			},
		})
		if err != nil {
			t.Fatalf("Insert group failed: %v", err)
		}

		groupID, _ = got["id"].(string)
		if groupID == "" {
			t.Error("Expected group id to be generated")
		}
		if got["created_at"] == int64(0) {
			t.Error("Expected created_at to be set")
		}
	})

	t.Run("Get group round-trips members in order", func(t *testing.T) {
		got, err := store.Get(ctx, record.Groups, groupID)
		if err != nil {
			t.Fatalf("Get group failed: %v", err)
		}

		members, ok := got["members"].([]record.Raw)
		if !ok || len(members) != 2 {
			t.Fatalf("members = %v, want 2 entries", got["members"])
		}
		if members[0]["id"] != "alice" || members[1]["id"] != "bob" {
			t.Errorf("member order = %v, %v; want alice, bob", members[0]["id"], members[1]["id"])
		}
		if members[1]["status"] != "invited" {
			t.Errorf("bob status = %v, want invited", members[1]["status"])
		}
	})

	var expenseID string
	t.Run("Insert expense stores amount exactly", func(t *testing.T) {
		got, err := store.Insert(ctx, record.Expenses, record.Raw{
			"group_id":      groupID,
			"description":   "Dinner",
			"amount":        "90.10",
			"paid_by":       "alice",
			"split_between": []any{"alice", "bob"},
		})
		if err != nil {
			t.Fatalf("Insert expense failed: %v", err)
		}

		expenseID, _ = got["id"].(string)
		if expenseID == "" {
			t.Error("Expected expense id to be generated")
		}
		if got["amount"] != "90.10" {
			t.Errorf("amount = %v, want the exact decimal string 90.10", got["amount"])
		}
		split, _ := got["split_between"].([]string)
		if len(split) != 2 || split[0] != "alice" || split[1] != "bob" {
			t.Errorf("split_between = %v, want [alice bob]", got["split_between"])
		}
	})

	t.Run("List expenses filters by group", func(t *testing.T) {
		if _, err := store.Insert(ctx, record.Expenses, record.Raw{
			"group_id": "other-group", "description": "Noise", "amount": "5",
			"paid_by": "x", "split_between": []any{"x"},
		}); err != nil {
			t.Fatalf("Insert noise expense failed: %v", err)
		}

		got, err := store.List(ctx, record.Expenses, storage.Filter{"groupId": groupID})
		if err != nil {
			t.Fatalf("List expenses failed: %v", err)
		}
		if len(got) != 1 || got[0]["id"] != expenseID {
			t.Errorf("filtered list = %v, want just %s", got, expenseID)
		}

		all, err := store.List(ctx, record.Expenses, nil)
		if err != nil {
			t.Fatalf("List all expenses failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("unfiltered list = %d expenses, want 2", len(all))
		}
	})

	t.Run("Update merges partial fields", func(t *testing.T) {
		got, err := store.Update(ctx, record.Expenses, expenseID, record.Raw{"settled": true})
		if err != nil {
			t.Fatalf("Update expense failed: %v", err)
		}
		if got["settled"] != true {
			t.Errorf("settled = %v, want true", got["settled"])
		}
		if got["description"] != "Dinner" || got["amount"] != "90.10" {
			t.Errorf("absent fields lost in update: %v", got)
		}
	})

	t.Run("Failed update leaves record intact", func(t *testing.T) {
		// A repeated member id violates the expense_splits primary key,
		// so the rewrite must roll back rather than drop the record.
		_, err := store.Update(ctx, record.Expenses, expenseID, record.Raw{
			"split_between": []any{"alice", "alice"},
		})
		if err == nil {
			t.Fatal("Expected update with duplicate split members to fail")
		}

		got, err := store.Get(ctx, record.Expenses, expenseID)
		if err != nil {
			t.Fatalf("Get after failed update = %v, want the record back", err)
		}
		split, _ := got["split_between"].([]string)
		if len(split) != 2 || split[0] != "alice" || split[1] != "bob" {
			t.Errorf("split_between = %v, want [alice bob]", got["split_between"])
		}
		if got["amount"] != "90.10" {
			t.Errorf("amount = %v, want 90.10", got["amount"])
		}
	})

	var settlementID string
	t.Run("Insert settlement with expense link", func(t *testing.T) {
		got, err := store.Insert(ctx, record.Settlements, record.Raw{
			"group_id":    groupID,
			"from_member": "bob",
			"to_member":   "alice",
			"amount":      "45.05",
			"expense_id":  expenseID,
		})
		if err != nil {
			t.Fatalf("Insert settlement failed: %v", err)
		}

		settlementID, _ = got["id"].(string)
		if got["confirmed"] != false {
			t.Errorf("confirmed = %v, want false on insert", got["confirmed"])
		}
		if got["expense_id"] != expenseID {
			t.Errorf("expense_id = %v, want %s", got["expense_id"], expenseID)
		}
	})

	t.Run("Confirm settlement via update", func(t *testing.T) {
		got, err := store.Update(ctx, record.Settlements, settlementID, record.Raw{"confirmed": true})
		if err != nil {
			t.Fatalf("Update settlement failed: %v", err)
		}
		if got["confirmed"] != true {
			t.Errorf("confirmed = %v, want true", got["confirmed"])
		}
		if got["from_member"] != "bob" || got["to_member"] != "alice" {
			t.Errorf("parties lost in update: %v", got)
		}
	})

	t.Run("Users round-trip", func(t *testing.T) {
		if _, err := store.Insert(ctx, record.Users, record.Raw{
			"id": "carol", "name": "Carol", "email": "carol@example.com", "status": "accepted",
		}); err != nil {
			t.Fatalf("Insert user failed: %v", err)
		}

		got, err := store.Get(ctx, record.Users, "carol")
		if err != nil {
			t.Fatalf("Get user failed: %v", err)
		}
		if got["email"] != "carol@example.com" {
			t.Errorf("email = %v", got["email"])
		}
	})

	t.Run("Delete removes the record", func(t *testing.T) {
		if err := store.Delete(ctx, record.Expenses, expenseID); err != nil {
			t.Fatalf("Delete expense failed: %v", err)
		}
		if _, err := store.Get(ctx, record.Expenses, expenseID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Get after delete = %v, want ErrNotFound", err)
		}
		if err := store.Delete(ctx, record.Expenses, expenseID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete = %v, want ErrNotFound", err)
		}
	})

	t.Run("Get unknown id returns ErrNotFound", func(t *testing.T) {
		if _, err := store.Get(ctx, record.Groups, "ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
