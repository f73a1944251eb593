package api

import (
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/balance"
	"github.com/tallyhq/tally/internal/models"
	"github.com/tallyhq/tally/internal/reminder"
)

// Wire shapes. Amounts travel as decimal strings; float64 never appears
// on the money path.

type memberDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status"`
}

type groupDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Members     []memberDTO `json:"members"`
	OwnerID     string      `json:"ownerId,omitempty"`
	CreatedAt   int64       `json:"createdAt"`
}

type expenseDTO struct {
	ID           string   `json:"id"`
	GroupID      string   `json:"groupId"`
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	PaidBy       string   `json:"paidBy"`
	SplitBetween []string `json:"splitBetween"`
	Date         int64    `json:"date"`
	CreatedBy    string   `json:"createdBy,omitempty"`
	Settled      bool     `json:"settled"`
}

type settlementDTO struct {
	ID          string `json:"id"`
	GroupID     string `json:"groupId"`
	FromMember  string `json:"fromMember"`
	ToMember    string `json:"toMember"`
	Amount      string `json:"amount"`
	Date        int64  `json:"date"`
	Confirmed   bool   `json:"confirmed"`
	Description string `json:"description,omitempty"`
	ExpenseID   string `json:"expenseId,omitempty"`
}

type debtDTO struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type balancesResponse struct {
	GroupID  string            `json:"groupId"`
	Balances map[string]string `json:"balances"`
	Debts    []debtDTO         `json:"debts"`
}

type debtorDTO struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Owes     string `json:"owes"`
}

type owedExpenseDTO struct {
	Expense expenseDTO `json:"expense"`
	Share   string     `json:"share"`
	Status  string     `json:"status"`
}

func toMemberDTO(m models.Member) memberDTO {
	return memberDTO{ID: m.ID, Name: m.Name, Email: m.Email, Status: string(m.Status)}
}

func toGroupDTO(g models.Group) groupDTO {
	members := make([]memberDTO, len(g.Members))
	for i, m := range g.Members {
		members[i] = toMemberDTO(m)
	}
	return groupDTO{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Members:     members,
		OwnerID:     g.OwnerID,
		CreatedAt:   g.CreatedAt,
	}
}

func toExpenseDTO(e models.Expense) expenseDTO {
	return expenseDTO{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Amount:       e.Amount.String(),
		PaidBy:       e.PaidBy,
		SplitBetween: e.SplitBetween,
		Date:         e.Date,
		CreatedBy:    e.CreatedBy,
		Settled:      e.Settled,
	}
}

func toSettlementDTO(s models.Settlement) settlementDTO {
	return settlementDTO{
		ID:          s.ID,
		GroupID:     s.GroupID,
		FromMember:  s.FromMember,
		ToMember:    s.ToMember,
		Amount:      s.Amount.String(),
		Date:        s.Date,
		Confirmed:   s.Confirmed,
		Description: s.Description,
		ExpenseID:   s.ExpenseID,
	}
}

func toBalancesResponse(groupID string, balances map[string]decimal.Decimal, debts []balance.DebtEdge) balancesResponse {
	out := balancesResponse{
		GroupID:  groupID,
		Balances: make(map[string]string, len(balances)),
		Debts:    make([]debtDTO, len(debts)),
	}
	for id, b := range balances {
		out.Balances[id] = b.String()
	}
	for i, d := range debts {
		out.Debts[i] = debtDTO{From: d.From, To: d.To, Amount: d.Amount.String()}
	}
	return out
}

func toDebtorDTOs(debtors []reminder.Debtor) []debtorDTO {
	out := make([]debtorDTO, len(debtors))
	for i, d := range debtors {
		out[i] = debtorDTO{MemberID: d.MemberID, Name: d.Name, Email: d.Email, Owes: d.Owes.String()}
	}
	return out
}
