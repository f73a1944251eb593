package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyDescription is returned when an expense or settlement has no
	// description.
	ErrEmptyDescription = errors.New("description can't be empty")

	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrEmptySplit is returned when an expense is split between nobody.
	ErrEmptySplit = errors.New("expense must be split between at least one member")

	// ErrDuplicateSplitMember is returned when a member id appears more
	// than once in a split; a duplicate would debit that member twice.
	ErrDuplicateSplitMember = errors.New("duplicate member id in split")
)

// Expense represents a single purchase paid by one member and split
// evenly across SplitBetween. There are no per-member custom shares:
// each participant owes Amount / len(SplitBetween).
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// Amount is the full amount paid, in the group's currency.
	Amount decimal.Decimal

	// PaidBy is the member id of whoever paid the full amount.
	PaidBy string

	// SplitBetween is the non-empty set of member ids sharing the cost.
	// PaidBy may or may not appear here; when it does, the payer also
	// owes their own share and nets Amount minus that share.
	SplitBetween []string

	// Date is the Unix timestamp of the purchase.
	Date int64

	// CreatedBy is the member id who recorded the expense.
	CreatedBy string

	// Settled marks the expense as fully repaid. Settled expenses still
	// participate in balance computation; the flag only filters the
	// "who still owes" views.
	Settled bool
}

// Validate checks the expense invariants the engine relies on: a
// description, a strictly positive amount, and a non-empty split set
// with no repeated member. Membership of PaidBy and SplitBetween in the
// group is the caller's responsibility.
func (e *Expense) Validate() error {
	if e.Description == "" {
		return ErrEmptyDescription
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.SplitBetween) == 0 {
		return ErrEmptySplit
	}
	seen := make(map[string]bool, len(e.SplitBetween))
	for _, id := range e.SplitBetween {
		if seen[id] {
			return ErrDuplicateSplitMember
		}
		seen[id] = true
	}
	return nil
}

// Share returns the even per-member share, Amount / len(SplitBetween).
// Zero if the split set is empty.
func (e *Expense) Share() decimal.Decimal {
	if len(e.SplitBetween) == 0 {
		return decimal.Zero
	}
	return e.Amount.Div(decimal.NewFromInt(int64(len(e.SplitBetween))))
}

// InSplit reports whether the member id participates in the split.
func (e *Expense) InSplit(memberID string) bool {
	for _, id := range e.SplitBetween {
		if id == memberID {
			return true
		}
	}
	return false
}
