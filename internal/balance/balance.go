// Package balance implements the pure balance engine: folding a group's
// expenses and confirmed settlements into net per-member balances and a
// simplified set of pairwise debts.
package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/models"
)

// Calculate folds the given expense and settlement sets into a mapping
// from member id to net balance. Positive means the group owes the
// member, negative means the member owes the group.
//
// Algorithm:
//   - For each expense: debit every split participant their even share,
//     credit the payer the sum of those shares. Crediting the share sum
//     rather than the raw amount keeps the fold exactly zero-sum even
//     when the division leaves a sub-cent residue; the two are equal
//     whenever the amount divides evenly.
//   - For each confirmed settlement: credit the payer (their debt
//     shrinks) and debit the receiver (they have been repaid).
//     Unconfirmed settlements contribute nothing.
//
// Members with no activity are absent from the result; callers treat
// absence as zero. The fold is deterministic and depends only on the
// input sets; it is recomputed from scratch on every read, never
// incrementally patched.
func Calculate(expenses []models.Expense, settlements []models.Settlement) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		n := len(e.SplitBetween)
		if n == 0 || e.PaidBy == "" {
			continue
		}
		share := e.Share()
		for _, memberID := range e.SplitBetween {
			balances[memberID] = balances[memberID].Sub(share)
		}
		balances[e.PaidBy] = balances[e.PaidBy].Add(share.Mul(decimal.NewFromInt(int64(n))))
	}

	for _, s := range settlements {
		if !s.Confirmed {
			continue
		}
		balances[s.FromMember] = balances[s.FromMember].Add(s.Amount)
		balances[s.ToMember] = balances[s.ToMember].Sub(s.Amount)
	}

	return balances
}

// DebtEdge represents a simplified debt from one member to another.
type DebtEdge struct {
	From   string // member who owes
	To     string // member who is owed
	Amount decimal.Decimal
}

// epsilon suppresses division-residue noise when matching debts.
var epsilon = decimal.New(1, -9) // 1e-9

// Simplify reduces a net balance mapping to a minimal-ish list of
// pairwise payments using greedy matching: walk debtors and creditors in
// member-id order, settling the smaller of the two open amounts at each
// step. The result is deterministic for a given balance set.
func Simplify(balances map[string]decimal.Decimal) []DebtEdge {
	var debtors, creditors []string
	open := make(map[string]decimal.Decimal, len(balances))

	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b := balances[id]
		switch {
		case b.LessThan(epsilon.Neg()):
			debtors = append(debtors, id)
			open[id] = b.Neg()
		case b.GreaterThan(epsilon):
			creditors = append(creditors, id)
			open[id] = b
		}
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := debtors[i], creditors[j]

		amount := open[debtor]
		if open[creditor].LessThan(amount) {
			amount = open[creditor]
		}

		if amount.GreaterThan(epsilon) {
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		open[debtor] = open[debtor].Sub(amount)
		open[creditor] = open[creditor].Sub(amount)

		if open[debtor].LessThanOrEqual(epsilon) {
			i++
		}
		if open[creditor].LessThanOrEqual(epsilon) {
			j++
		}
	}

	return edges
}
