// Package ledger holds the in-process working set of groups, users,
// expenses and settlements, and the derived balance queries built on it.
//
// The working set is a cache: it is populated from the persistence store
// (Reload) and kept current by the change propagation coordinator. All
// access serializes through one mutex, so mutators from direct callers
// and from the coordinator never interleave partially.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

// ErrNotFound is returned when an id does not match any cached record.
var ErrNotFound = errors.New("ledger: record not found")

// Ledger is the mutable working set. Slices preserve insertion order,
// which is the default display order and nothing more; upserts are keyed
// by id with last-write-wins semantics.
type Ledger struct {
	mu          sync.Mutex
	groups      []models.Group
	users       []models.Member
	expenses    []models.Expense
	settlements []models.Settlement
}

// New returns an empty working set.
func New() *Ledger {
	return &Ledger{}
}

// UpsertGroup inserts the group or replaces the cached one with the same id.
func (l *Ledger) UpsertGroup(g models.Group) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.groups {
		if l.groups[i].ID == g.ID {
			l.groups[i] = g
			return
		}
	}
	l.groups = append(l.groups, g)
}

// RemoveGroup removes a cached group. Unknown ids are a no-op.
func (l *Ledger) RemoveGroup(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.groups {
		if l.groups[i].ID == id {
			l.groups = append(l.groups[:i], l.groups[i+1:]...)
			return true
		}
	}
	return false
}

// GroupByID returns the cached group with the given id. The member list
// is copied so callers can grow or edit it without touching the cache.
func (l *Ledger) GroupByID(id string) (models.Group, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.groups {
		if l.groups[i].ID == id {
			return copyGroup(l.groups[i]), true
		}
	}
	return models.Group{}, false
}

// Groups returns a copy of the cached group list in insertion order.
func (l *Ledger) Groups() []models.Group {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Group, len(l.groups))
	for i, g := range l.groups {
		out[i] = copyGroup(g)
	}
	return out
}

func copyGroup(g models.Group) models.Group {
	g.Members = append([]models.Member(nil), g.Members...)
	return g
}

// UpsertUser inserts or replaces a cached user record.
func (l *Ledger) UpsertUser(m models.Member) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.users {
		if l.users[i].ID == m.ID {
			l.users[i] = m
			return
		}
	}
	l.users = append(l.users, m)
}

// RemoveUser removes a cached user record. Unknown ids are a no-op.
func (l *Ledger) RemoveUser(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.users {
		if l.users[i].ID == id {
			l.users = append(l.users[:i], l.users[i+1:]...)
			return true
		}
	}
	return false
}

// UserByID returns the cached user with the given id.
func (l *Ledger) UserByID(id string) (models.Member, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.users {
		if l.users[i].ID == id {
			return l.users[i], true
		}
	}
	return models.Member{}, false
}

// UpsertExpense inserts the expense or replaces the cached one with the
// same id (last-write-wins, no version vector).
func (l *Ledger) UpsertExpense(e models.Expense) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.expenses {
		if l.expenses[i].ID == e.ID {
			l.expenses[i] = e
			return
		}
	}
	l.expenses = append(l.expenses, e)
}

// RemoveExpense removes a cached expense. Unknown ids are a no-op.
func (l *Ledger) RemoveExpense(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.expenses {
		if l.expenses[i].ID == id {
			l.expenses = append(l.expenses[:i], l.expenses[i+1:]...)
			return true
		}
	}
	return false
}

// ExpenseByID returns the cached expense with the given id.
func (l *Ledger) ExpenseByID(id string) (models.Expense, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.expenses {
		if l.expenses[i].ID == id {
			return l.expenses[i], true
		}
	}
	return models.Expense{}, false
}

// ExpensesOf returns the group's expenses in insertion order.
func (l *Ledger) ExpensesOf(groupID string) []models.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Expense
	for _, e := range l.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out
}

// UpsertSettlement inserts the settlement or replaces the cached one
// with the same id.
func (l *Ledger) UpsertSettlement(s models.Settlement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.settlements {
		if l.settlements[i].ID == s.ID {
			l.settlements[i] = s
			return
		}
	}
	l.settlements = append(l.settlements, s)
}

// RemoveSettlement removes a cached settlement. Unknown ids are a no-op.
func (l *Ledger) RemoveSettlement(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.settlements {
		if l.settlements[i].ID == id {
			l.settlements = append(l.settlements[:i], l.settlements[i+1:]...)
			return true
		}
	}
	return false
}

// SettlementByID returns the cached settlement with the given id.
func (l *Ledger) SettlementByID(id string) (models.Settlement, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.settlements {
		if l.settlements[i].ID == id {
			return l.settlements[i], true
		}
	}
	return models.Settlement{}, false
}

// SettlementsOf returns the group's settlements in insertion order,
// confirmed and unconfirmed alike.
func (l *Ledger) SettlementsOf(groupID string) []models.Settlement {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Settlement
	for _, s := range l.settlements {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out
}

// ConfirmSettlement transitions a settlement's Confirmed flag from false
// to true. Confirming an already-confirmed settlement is a no-op; there
// is no way back to unconfirmed. Returns the settlement after the
// transition.
func (l *Ledger) ConfirmSettlement(id string) (models.Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.settlements {
		if l.settlements[i].ID == id {
			l.settlements[i].Confirmed = true
			return l.settlements[i], nil
		}
	}
	return models.Settlement{}, fmt.Errorf("confirm settlement %s: %w", id, ErrNotFound)
}

// Reload replaces the entire working set with the store's current
// contents. This is the only way to guarantee consistency after the
// coordinator has been disconnected long enough to miss events.
func (l *Ledger) Reload(ctx context.Context, store storage.Store) error {
	rawGroups, err := store.List(ctx, record.Groups, nil)
	if err != nil {
		return fmt.Errorf("reload groups: %w", err)
	}
	rawUsers, err := store.List(ctx, record.Users, nil)
	if err != nil {
		return fmt.Errorf("reload users: %w", err)
	}
	rawExpenses, err := store.List(ctx, record.Expenses, nil)
	if err != nil {
		return fmt.Errorf("reload expenses: %w", err)
	}
	rawSettlements, err := store.List(ctx, record.Settlements, nil)
	if err != nil {
		return fmt.Errorf("reload settlements: %w", err)
	}

	groups := make([]models.Group, len(rawGroups))
	for i, r := range rawGroups {
		groups[i] = record.DecodeGroup(r)
	}
	users := make([]models.Member, len(rawUsers))
	for i, r := range rawUsers {
		users[i] = record.DecodeMember(r)
	}
	expenses := make([]models.Expense, len(rawExpenses))
	for i, r := range rawExpenses {
		expenses[i] = record.DecodeExpense(r)
	}
	settlements := make([]models.Settlement, len(rawSettlements))
	for i, r := range rawSettlements {
		settlements[i] = record.DecodeSettlement(r)
	}

	l.mu.Lock()
	l.groups = groups
	l.users = users
	l.expenses = expenses
	l.settlements = settlements
	l.mu.Unlock()

	return nil
}
