package record

import (
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/models"
)

// The Decode* functions normalize a raw record and build the typed model.
// They never fail: unparseable fields land on their documented defaults,
// and the model's own Validate decides whether the result is usable.

// DecodeMember builds a Member from a raw users record.
func DecodeMember(raw Raw) models.Member {
	r := Normalize(Users, raw)
	return models.Member{
		ID:     r["id"].(string),
		Name:   r["name"].(string),
		Email:  r["email"].(string),
		Status: models.MemberStatus(r["status"].(string)),
	}
}

// DecodeGroup builds a Group from a raw groups record, normalizing each
// embedded member record.
func DecodeGroup(raw Raw) models.Group {
	r := Normalize(Groups, raw)
	rawMembers := r["members"].([]Raw)
	members := make([]models.Member, len(rawMembers))
	for i, m := range rawMembers {
		members[i] = DecodeMember(m)
	}
	return models.Group{
		ID:          r["id"].(string),
		Name:        r["name"].(string),
		Description: r["description"].(string),
		Members:     members,
		OwnerID:     r["ownerId"].(string),
		CreatedAt:   r["createdAt"].(int64),
	}
}

// DecodeExpense builds an Expense from a raw expenses record.
func DecodeExpense(raw Raw) models.Expense {
	r := Normalize(Expenses, raw)
	return models.Expense{
		ID:           r["id"].(string),
		GroupID:      r["groupId"].(string),
		Description:  r["description"].(string),
		Amount:       r["amount"].(decimal.Decimal),
		PaidBy:       r["paidBy"].(string),
		SplitBetween: r["splitBetween"].([]string),
		Date:         r["date"].(int64),
		CreatedBy:    r["createdBy"].(string),
		Settled:      r["settled"].(bool),
	}
}

// DecodeSettlement builds a Settlement from a raw settlements record.
func DecodeSettlement(raw Raw) models.Settlement {
	r := Normalize(Settlements, raw)
	return models.Settlement{
		ID:          r["id"].(string),
		GroupID:     r["groupId"].(string),
		FromMember:  r["fromMember"].(string),
		ToMember:    r["toMember"].(string),
		Amount:      r["amount"].(decimal.Decimal),
		Date:        r["date"].(int64),
		Confirmed:   r["confirmed"].(bool),
		Description: r["description"].(string),
		ExpenseID:   r["expenseId"].(string),
	}
}

// The Encode* functions produce already-canonical raw records, suitable
// for store writes. Normalize(Encode(x)) == Encode(x).

// EncodeMember converts a Member to a canonical raw record.
func EncodeMember(m models.Member) Raw {
	return Raw{
		"id":     m.ID,
		"name":   m.Name,
		"email":  m.Email,
		"status": string(m.Status),
	}
}

// EncodeGroup converts a Group to a canonical raw record.
func EncodeGroup(g models.Group) Raw {
	members := make([]Raw, len(g.Members))
	for i, m := range g.Members {
		members[i] = EncodeMember(m)
	}
	return Raw{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"members":     members,
		"ownerId":     g.OwnerID,
		"createdAt":   g.CreatedAt,
	}
}

// EncodeExpense converts an Expense to a canonical raw record.
func EncodeExpense(e models.Expense) Raw {
	split := e.SplitBetween
	if split == nil {
		split = []string{}
	}
	return Raw{
		"id":           e.ID,
		"groupId":      e.GroupID,
		"description":  e.Description,
		"amount":       e.Amount,
		"paidBy":       e.PaidBy,
		"splitBetween": split,
		"date":         e.Date,
		"createdBy":    e.CreatedBy,
		"settled":      e.Settled,
	}
}

// EncodeSettlement converts a Settlement to a canonical raw record.
func EncodeSettlement(s models.Settlement) Raw {
	return Raw{
		"id":          s.ID,
		"groupId":     s.GroupID,
		"fromMember":  s.FromMember,
		"toMember":    s.ToMember,
		"amount":      s.Amount,
		"date":        s.Date,
		"confirmed":   s.Confirmed,
		"description": s.Description,
		"expenseId":   s.ExpenseID,
	}
}
