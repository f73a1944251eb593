package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/balance"
	"github.com/tallyhq/tally/internal/metrics"
	"github.com/tallyhq/tally/internal/models"
)

// PaymentStatus describes where a member stands on their share of one
// expense.
type PaymentStatus string

const (
	// StatusNotApplicable: the member paid the expense or is not in its
	// split set, so there is nothing for them to repay.
	StatusNotApplicable PaymentStatus = "not_applicable"

	// StatusUnpaid: no settlement toward this expense exists.
	StatusUnpaid PaymentStatus = "unpaid"

	// StatusPending: a settlement exists but the payer has not
	// confirmed receipt yet.
	StatusPending PaymentStatus = "pending"

	// StatusPaid: a confirmed settlement covers this expense.
	StatusPaid PaymentStatus = "paid"
)

// CalculateBalances folds the group's expenses and confirmed settlements
// into net per-member balances. The result is derived on every call;
// nothing is cached between reads.
func (l *Ledger) CalculateBalances(groupID string) map[string]decimal.Decimal {
	metrics.BalanceComputations.Inc()
	return balance.Calculate(l.ExpensesOf(groupID), l.SettlementsOf(groupID))
}

// SimplifiedDebts reduces the group's net balances to a list of pairwise
// payments that would settle everyone.
func (l *Ledger) SimplifiedDebts(groupID string) []balance.DebtEdge {
	return balance.Simplify(l.CalculateBalances(groupID))
}

// ExpensesWhereMemberOwes returns the open expenses on which the member
// still owes a share: the member is in the split set, did not pay, and
// the expense is not settled. Spans all cached groups.
func (l *Ledger) ExpensesWhereMemberOwes(memberID string) []models.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Expense
	for _, e := range l.expenses {
		if e.Settled || e.PaidBy == memberID {
			continue
		}
		if e.InSplit(memberID) {
			out = append(out, e)
		}
	}
	return out
}

// AmountOwedForExpense returns the member's even share of the expense,
// or zero when the expense is unknown or the member is not in its split.
func (l *Ledger) AmountOwedForExpense(expenseID, memberID string) decimal.Decimal {
	e, ok := l.ExpenseByID(expenseID)
	if !ok || !e.InSplit(memberID) {
		return decimal.Zero
	}
	return e.Share()
}

// PaymentStatusForExpense reports whether the member has repaid their
// share of the expense. A settlement counts toward the expense when its
// ExpenseID matches, or, for records written before the explicit link
// existed, when its description contains the expense's description.
// A confirmed matching settlement wins over an unconfirmed one.
func (l *Ledger) PaymentStatusForExpense(expenseID, memberID string) PaymentStatus {
	e, ok := l.ExpenseByID(expenseID)
	if !ok || e.PaidBy == memberID || !e.InSplit(memberID) {
		return StatusNotApplicable
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	pending := false
	for _, s := range l.settlements {
		if s.GroupID != e.GroupID || s.FromMember != memberID || s.ToMember != e.PaidBy {
			continue
		}
		if !settlementCovers(s, e) {
			continue
		}
		if s.Confirmed {
			return StatusPaid
		}
		pending = true
	}
	if pending {
		return StatusPending
	}
	return StatusUnpaid
}

// settlementCovers links a settlement to the expense it repays.
func settlementCovers(s models.Settlement, e models.Expense) bool {
	if s.ExpenseID != "" {
		return s.ExpenseID == e.ID
	}
	return e.Description != "" && strings.Contains(s.Description, e.Description)
}
