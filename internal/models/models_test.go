package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGroupValidate(t *testing.T) {
	tests := []struct {
		name  string
		group Group
		want  error
	}{
		{
			name:  "valid",
			group: Group{Name: "Trip", OwnerID: "a", Members: []Member{{ID: "a"}, {ID: "b"}}},
			want:  nil,
		},
		{
			name:  "empty name",
			group: Group{Members: []Member{{ID: "a"}}},
			want:  ErrEmptyGroupName,
		},
		{
			name:  "owner outside member list",
			group: Group{Name: "Trip", OwnerID: "ghost", Members: []Member{{ID: "a"}}},
			want:  ErrOwnerNotMember,
		},
		{
			name:  "duplicate member id",
			group: Group{Name: "Trip", Members: []Member{{ID: "a"}, {ID: "a"}}},
			want:  ErrDuplicateMember,
		},
		{
			name:  "no owner is allowed",
			group: Group{Name: "Trip", Members: []Member{{ID: "a"}}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.group.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Description:  "Dinner",
		Amount:       decimal.NewFromInt(90),
		PaidBy:       "a",
		SplitBetween: []string{"a", "b"},
	}

	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"valid", func(*Expense) {}, nil},
		{"empty description", func(e *Expense) { e.Description = "" }, ErrEmptyDescription},
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"empty split", func(e *Expense) { e.SplitBetween = nil }, ErrEmptySplit},
		{"duplicate split member", func(e *Expense) { e.SplitBetween = []string{"a", "b", "a"} }, ErrDuplicateSplitMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseShare(t *testing.T) {
	e := Expense{Amount: decimal.NewFromInt(90), SplitBetween: []string{"a", "b", "c"}}
	if got := e.Share(); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Share() = %s, want 30", got)
	}

	empty := Expense{Amount: decimal.NewFromInt(90)}
	if got := empty.Share(); !got.IsZero() {
		t.Errorf("Share() with empty split = %s, want 0", got)
	}
}

func TestSettlementValidate(t *testing.T) {
	tests := []struct {
		name       string
		settlement Settlement
		want       error
	}{
		{
			name:       "valid",
			settlement: Settlement{FromMember: "a", ToMember: "b", Amount: decimal.NewFromInt(10)},
			want:       nil,
		},
		{
			name:       "zero amount",
			settlement: Settlement{FromMember: "a", ToMember: "b"},
			want:       ErrInvalidAmount,
		},
		{
			name:       "self settlement",
			settlement: Settlement{FromMember: "a", ToMember: "a", Amount: decimal.NewFromInt(10)},
			want:       ErrSelfSettlement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.settlement.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
