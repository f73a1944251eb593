package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSelfSettlement is returned when a settlement pays a member back to
// themselves.
var ErrSelfSettlement = errors.New("settlement from and to must differ")

// Settlement represents a claimed or confirmed direct repayment from one
// member to another. Unconfirmed settlements are recorded but contribute
// nothing to balances until Confirmed flips to true; there is no reverse
// transition and no expiry.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromMember is the member id of the debtor settling up.
	FromMember string

	// ToMember is the member id of the creditor being paid.
	ToMember string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// Date is the Unix timestamp when the payment was claimed.
	Date int64

	// Confirmed means the recipient has acknowledged receipt. Only
	// confirmed settlements affect balance computation.
	Confirmed bool

	// Description is an optional free-text note. Historically the only
	// link between a settlement and the expense it repays was this text
	// containing the expense's description.
	Description string

	// ExpenseID optionally links this settlement to the expense it
	// repays. Preferred over the description-substring linkage; may be
	// empty on records written by older clients.
	ExpenseID string
}

// Validate checks the settlement invariants: positive amount, distinct
// endpoints.
func (s *Settlement) Validate() error {
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if s.FromMember == s.ToMember {
		return ErrSelfSettlement
	}
	return nil
}
