package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/storage/memory"
)

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	l.UpsertGroup(models.Group{
		ID:      "g1",
		Name:    "Trip",
		OwnerID: "alice",
		Members: []models.Member{
			{ID: "alice", Name: "Alice", Email: "alice@example.com", Status: models.MemberAccepted},
			{ID: "bob", Name: "Bob", Email: "bob@example.com", Status: models.MemberAccepted},
			{ID: "carol", Name: "Carol", Email: "carol@example.com", Status: models.MemberAccepted},
		},
	})
	return l
}

func TestUpsertExpenseReplacesById(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertExpense(models.Expense{ID: "e1", GroupID: "g1", Description: "Dinner", Amount: decimal.NewFromInt(90)})
	l.UpsertExpense(models.Expense{ID: "e1", GroupID: "g1", Description: "Dinner out", Amount: decimal.NewFromInt(95)})

	got := l.ExpensesOf("g1")
	if len(got) != 1 {
		t.Fatalf("expenses = %d, want 1", len(got))
	}
	if got[0].Description != "Dinner out" || !got[0].Amount.Equal(decimal.NewFromInt(95)) {
		t.Errorf("expense = %+v, want replaced fields", got[0])
	}
}

func TestRemoveExpense(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertExpense(models.Expense{ID: "e1", GroupID: "g1"})

	if !l.RemoveExpense("e1") {
		t.Error("RemoveExpense(e1) = false, want true")
	}
	if l.RemoveExpense("e1") {
		t.Error("second RemoveExpense(e1) = true, want false")
	}
	if got := l.ExpensesOf("g1"); len(got) != 0 {
		t.Errorf("expenses = %v, want empty", got)
	}
}

func TestGroupByIDCopiesMembers(t *testing.T) {
	l := newTestLedger(t)
	g, ok := l.GroupByID("g1")
	if !ok {
		t.Fatal("group g1 missing")
	}

	g.Members[0].Name = "Mallory"

	again, _ := l.GroupByID("g1")
	if again.Members[0].Name != "Alice" {
		t.Error("mutating a returned group leaked into the cache")
	}
}

func TestConfirmSettlement(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertSettlement(models.Settlement{
		ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
		Amount: decimal.NewFromInt(30),
	})

	s, err := l.ConfirmSettlement("s1")
	if err != nil {
		t.Fatalf("ConfirmSettlement: %v", err)
	}
	if !s.Confirmed {
		t.Error("settlement not confirmed")
	}

	// Confirming again is a no-op, not an error.
	s, err = l.ConfirmSettlement("s1")
	if err != nil || !s.Confirmed {
		t.Errorf("second confirm: %v, confirmed=%v", err, s.Confirmed)
	}

	if _, err := l.ConfirmSettlement("nope"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("confirm unknown = %v, want ErrNotFound", err)
	}
}

func TestCalculateBalancesEndToEnd(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertExpense(models.Expense{
		ID: "e1", GroupID: "g1", Description: "Groceries",
		Amount: decimal.NewFromInt(90), PaidBy: "alice",
		SplitBetween: []string{"alice", "bob", "carol"},
	})

	assertBalance := func(member, want string) {
		t.Helper()
		b := l.CalculateBalances("g1")
		if !b[member].Equal(decimal.RequireFromString(want)) {
			t.Errorf("balance[%s] = %s, want %s", member, b[member], want)
		}
	}

	assertBalance("alice", "60")
	assertBalance("bob", "-30")
	assertBalance("carol", "-30")

	// An unconfirmed settlement changes nothing.
	l.UpsertSettlement(models.Settlement{
		ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
		Amount: decimal.NewFromInt(30), ExpenseID: "e1",
	})
	assertBalance("alice", "60")
	assertBalance("bob", "-30")

	if _, err := l.ConfirmSettlement("s1"); err != nil {
		t.Fatalf("ConfirmSettlement: %v", err)
	}
	assertBalance("alice", "30")
	assertBalance("bob", "0")
	assertBalance("carol", "-30")
}

func TestExpensesWhereMemberOwes(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertExpense(models.Expense{
		ID: "e1", GroupID: "g1", Description: "Dinner", PaidBy: "alice",
		Amount: decimal.NewFromInt(90), SplitBetween: []string{"alice", "bob"},
	})
	l.UpsertExpense(models.Expense{
		ID: "e2", GroupID: "g1", Description: "Taxi", PaidBy: "bob",
		Amount: decimal.NewFromInt(20), SplitBetween: []string{"alice", "bob"},
	})
	l.UpsertExpense(models.Expense{
		ID: "e3", GroupID: "g1", Description: "Settled one", PaidBy: "alice",
		Amount: decimal.NewFromInt(10), SplitBetween: []string{"bob"}, Settled: true,
	})
	l.UpsertExpense(models.Expense{
		ID: "e4", GroupID: "g1", Description: "Not bob's", PaidBy: "alice",
		Amount: decimal.NewFromInt(10), SplitBetween: []string{"carol"},
	})

	got := l.ExpensesWhereMemberOwes("bob")
	if len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("owes = %v, want just e1", got)
	}
}

func TestAmountOwedForExpense(t *testing.T) {
	l := newTestLedger(t)
	l.UpsertExpense(models.Expense{
		ID: "e1", GroupID: "g1", PaidBy: "alice",
		Amount: decimal.NewFromInt(90), SplitBetween: []string{"alice", "bob", "carol"},
	})

	if got := l.AmountOwedForExpense("e1", "bob"); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("owed = %s, want 30", got)
	}
	if got := l.AmountOwedForExpense("e1", "dave"); !got.IsZero() {
		t.Errorf("owed for non-participant = %s, want 0", got)
	}
	if got := l.AmountOwedForExpense("missing", "bob"); !got.IsZero() {
		t.Errorf("owed for unknown expense = %s, want 0", got)
	}
}

func TestPaymentStatusForExpense(t *testing.T) {
	expense := models.Expense{
		ID: "e1", GroupID: "g1", Description: "Dinner", PaidBy: "alice",
		Amount: decimal.NewFromInt(90), SplitBetween: []string{"alice", "bob"},
	}

	tests := []struct {
		name        string
		memberID    string
		settlements []models.Settlement
		want        ledger.PaymentStatus
	}{
		{
			name:     "payer is not applicable",
			memberID: "alice",
			want:     ledger.StatusNotApplicable,
		},
		{
			name:     "outside split is not applicable",
			memberID: "carol",
			want:     ledger.StatusNotApplicable,
		},
		{
			name:     "no settlement means unpaid",
			memberID: "bob",
			want:     ledger.StatusUnpaid,
		},
		{
			name:     "unconfirmed settlement is pending",
			memberID: "bob",
			settlements: []models.Settlement{{
				ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
				Amount: decimal.NewFromInt(45), ExpenseID: "e1",
			}},
			want: ledger.StatusPending,
		},
		{
			name:     "confirmed settlement is paid",
			memberID: "bob",
			settlements: []models.Settlement{{
				ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
				Amount: decimal.NewFromInt(45), ExpenseID: "e1", Confirmed: true,
			}},
			want: ledger.StatusPaid,
		},
		{
			name:     "confirmed wins over pending",
			memberID: "bob",
			settlements: []models.Settlement{
				{
					ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
					Amount: decimal.NewFromInt(45), ExpenseID: "e1",
				},
				{
					ID: "s2", GroupID: "g1", FromMember: "bob", ToMember: "alice",
					Amount: decimal.NewFromInt(45), ExpenseID: "e1", Confirmed: true,
				},
			},
			want: ledger.StatusPaid,
		},
		{
			name:     "legacy description match",
			memberID: "bob",
			settlements: []models.Settlement{{
				ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
				Amount: decimal.NewFromInt(45), Description: "Settling up for Dinner",
			}},
			want: ledger.StatusPending,
		},
		{
			name:     "explicit link to another expense does not match",
			memberID: "bob",
			settlements: []models.Settlement{{
				ID: "s1", GroupID: "g1", FromMember: "bob", ToMember: "alice",
				Amount: decimal.NewFromInt(45), ExpenseID: "e2",
				Description: "Settling up for Dinner",
			}},
			want: ledger.StatusUnpaid,
		},
		{
			name:     "wrong direction does not match",
			memberID: "bob",
			settlements: []models.Settlement{{
				ID: "s1", GroupID: "g1", FromMember: "alice", ToMember: "bob",
				Amount: decimal.NewFromInt(45), ExpenseID: "e1", Confirmed: true,
			}},
			want: ledger.StatusUnpaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			l.UpsertExpense(expense)
			for _, s := range tt.settlements {
				l.UpsertSettlement(s)
			}
			if got := l.PaymentStatusForExpense("e1", tt.memberID); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	defer store.Close()

	if _, err := store.Insert(ctx, "groups", map[string]any{
		"id": "g1", "name": "Trip", "owner_id": "alice",
		"members": []any{
			map[string]any{"id": "alice", "name": "Alice", "email": "alice@example.com", "status": "accepted"},
		},
	}); err != nil {
		t.Fatalf("insert group: %v", err)
	}
	if _, err := store.Insert(ctx, "expenses", map[string]any{
		"id": "e1", "group_id": "g1", "description": "Dinner", "amount": "90",
		"paid_by": "alice", "split_between": []any{"alice", "bob", "carol"},
	}); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	l := ledger.New()
	// Stale state must be dropped by the reload.
	l.UpsertExpense(models.Expense{ID: "stale", GroupID: "g1"})

	if err := l.Reload(ctx, store); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if _, ok := l.GroupByID("g1"); !ok {
		t.Error("group g1 missing after reload")
	}
	if _, ok := l.ExpenseByID("stale"); ok {
		t.Error("stale expense survived reload")
	}
	e, ok := l.ExpenseByID("e1")
	if !ok {
		t.Fatal("expense e1 missing after reload")
	}
	if !e.Amount.Equal(decimal.NewFromInt(90)) || len(e.SplitBetween) != 3 {
		t.Errorf("expense = %+v, want amount 90 split across 3", e)
	}
}
