package balance

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/models"
)

func expense(id, paidBy string, amount string, split ...string) models.Expense {
	return models.Expense{
		ID:           id,
		GroupID:      "g1",
		Description:  "expense " + id,
		Amount:       decimal.RequireFromString(amount),
		PaidBy:       paidBy,
		SplitBetween: split,
	}
}

func assertBalance(t *testing.T, balances map[string]decimal.Decimal, member, want string) {
	t.Helper()
	got, ok := balances[member]
	if !ok {
		t.Fatalf("no balance for %s", member)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("balance[%s] = %s, want %s", member, got, want)
	}
}

func assertZeroSum(t *testing.T, balances map[string]decimal.Decimal) {
	t.Helper()
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b)
	}
	if !sum.IsZero() {
		t.Errorf("balances sum to %s, want 0", sum)
	}
}

func TestCalculateEvenSplit(t *testing.T) {
	balances := Calculate(
		[]models.Expense{expense("e1", "alice", "300", "alice", "bob", "carol")},
		nil,
	)

	assertBalance(t, balances, "alice", "200")
	assertBalance(t, balances, "bob", "-100")
	assertBalance(t, balances, "carol", "-100")
	assertZeroSum(t, balances)
}

func TestCalculatePayerOutsideSplit(t *testing.T) {
	balances := Calculate(
		[]models.Expense{expense("e1", "alice", "100", "bob", "carol")},
		nil,
	)

	assertBalance(t, balances, "alice", "100")
	assertBalance(t, balances, "bob", "-50")
	assertBalance(t, balances, "carol", "-50")
	assertZeroSum(t, balances)
}

func TestCalculateIndivisibleAmountStaysZeroSum(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		split  []string
	}{
		{"100 across three", "100", []string{"a", "b", "c"}},
		{"0.01 across three", "0.01", []string{"a", "b", "c"}},
		{"99.99 across seven", "99.99", []string{"a", "b", "c", "d", "e", "f", "g"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := Calculate(
				[]models.Expense{expense("e1", tt.split[0], tt.amount, tt.split...)},
				nil,
			)
			assertZeroSum(t, balances)
		})
	}
}

func TestCalculateSettlementGating(t *testing.T) {
	expenses := []models.Expense{expense("e1", "alice", "300", "alice", "bob", "carol")}
	settlement := models.Settlement{
		ID:         "s1",
		GroupID:    "g1",
		FromMember: "bob",
		ToMember:   "alice",
		Amount:     decimal.RequireFromString("100"),
	}

	unconfirmed := Calculate(expenses, []models.Settlement{settlement})
	assertBalance(t, unconfirmed, "alice", "200")
	assertBalance(t, unconfirmed, "bob", "-100")

	settlement.Confirmed = true
	confirmed := Calculate(expenses, []models.Settlement{settlement})
	assertBalance(t, confirmed, "alice", "100")
	assertBalance(t, confirmed, "bob", "0")
	assertBalance(t, confirmed, "carol", "-100")
	assertZeroSum(t, confirmed)
}

func TestCalculateMultipleExpenses(t *testing.T) {
	balances := Calculate([]models.Expense{
		expense("e1", "alice", "90", "alice", "bob", "carol"),
		expense("e2", "bob", "60", "alice", "bob"),
	}, nil)

	// alice: +60 from e1, -30 from e2
	assertBalance(t, balances, "alice", "30")
	// bob: -30 from e1, +30 from e2
	assertBalance(t, balances, "bob", "0")
	assertBalance(t, balances, "carol", "-30")
	assertZeroSum(t, balances)
}

func TestSimplify(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"alice": decimal.RequireFromString("200"),
		"bob":   decimal.RequireFromString("-100"),
		"carol": decimal.RequireFromString("-100"),
	}

	edges := Simplify(balances)
	if len(edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(edges))
	}
	for _, e := range edges {
		if e.To != "alice" {
			t.Errorf("edge %+v should point at alice", e)
		}
		if !e.Amount.Equal(decimal.RequireFromString("100")) {
			t.Errorf("edge amount = %s, want 100", e.Amount)
		}
	}
	if edges[0].From == edges[1].From {
		t.Error("both edges from the same debtor")
	}
}

func TestSimplifyDeterministic(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"d": decimal.RequireFromString("-10"),
		"c": decimal.RequireFromString("-10"),
		"b": decimal.RequireFromString("10"),
		"a": decimal.RequireFromString("10"),
	}

	first := Simplify(balances)
	for range 10 {
		again := Simplify(balances)
		if len(again) != len(first) {
			t.Fatalf("edge count varies: %d vs %d", len(again), len(first))
		}
		for i := range first {
			if first[i].From != again[i].From || first[i].To != again[i].To || !first[i].Amount.Equal(again[i].Amount) {
				t.Fatalf("edges vary across runs: %+v vs %+v", first[i], again[i])
			}
		}
	}
}

func TestSimplifyIgnoresDust(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"a": decimal.New(1, -12),
		"b": decimal.New(-1, -12),
	}
	if edges := Simplify(balances); len(edges) != 0 {
		t.Errorf("edges = %v, want none for sub-epsilon balances", edges)
	}
}

func TestCalculateEmptyInputs(t *testing.T) {
	if balances := Calculate(nil, nil); len(balances) != 0 {
		t.Errorf("balances = %v, want empty", balances)
	}
}
