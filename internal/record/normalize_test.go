package record

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeKeyVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want string // expected groupId
	}{
		{
			name: "camelCase",
			raw:  Raw{"groupId": "g1"},
			want: "g1",
		},
		{
			name: "snake_case",
			raw:  Raw{"group_id": "g2"},
			want: "g2",
		},
		{
			name: "upper snake",
			raw:  Raw{"GROUP_ID": "g3"},
			want: "g3",
		},
		{
			name: "camelCase wins over snake_case",
			raw:  Raw{"groupId": "camel", "group_id": "snake"},
			want: "camel",
		},
		{
			name: "snake_case wins over upper",
			raw:  Raw{"group_id": "snake", "GROUP_ID": "upper"},
			want: "snake",
		},
		{
			name: "nil camelCase falls through to snake_case",
			raw:  Raw{"groupId": nil, "group_id": "snake"},
			want: "snake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(Expenses, tt.raw)
			if got["groupId"] != tt.want {
				t.Errorf("groupId = %v, want %v", got["groupId"], tt.want)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	got := Normalize(Expenses, Raw{})

	if got["id"] != "" {
		t.Errorf("id default = %v, want empty string", got["id"])
	}
	if got["description"] != "" {
		t.Errorf("description default = %v, want empty string", got["description"])
	}
	if !got["amount"].(decimal.Decimal).IsZero() {
		t.Errorf("amount default = %v, want 0", got["amount"])
	}
	if got["settled"] != false {
		t.Errorf("settled default = %v, want false", got["settled"])
	}
	if got["date"].(int64) == 0 {
		t.Error("date default should be the current time, got 0")
	}
	if split := got["splitBetween"].([]string); len(split) != 0 {
		t.Errorf("splitBetween default = %v, want empty", split)
	}
}

func TestNormalizeNumericFallback(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"float", 12.5, "12.5"},
		{"int", 40, "40"},
		{"decimal string", "99.99", "99.99"},
		{"garbage string", "not-a-number", "0"},
		{"wrong type", []int{1}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(Expenses, Raw{"amount": tt.value})
			if amount := got["amount"].(decimal.Decimal); amount.String() != tt.want {
				t.Errorf("amount = %v, want %v", amount, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := map[Collection]Raw{
		Expenses: {
			"ID":            "e1",
			"group_id":      "g1",
			"description":   "Dinner",
			"AMOUNT":        "90.00",
			"paid_by":       "alice",
			"split_between": []any{"alice", "bob"},
			"date":          int64(1700000000),
		},
		Settlements: {
			"id":          "s1",
			"groupId":     "g1",
			"FROM_MEMBER": "bob",
			"to_member":   "alice",
			"amount":      30.0,
			"confirmed":   "true",
		},
		Groups: {
			"id":       "g1",
			"name":     "Trip",
			"owner_id": "alice",
			"members": []any{
				map[string]any{"ID": "alice", "NAME": "Alice", "email": "alice@example.com"},
			},
			"created_at": int64(1700000000),
		},
		Users: {
			"id": "alice", "name": "Alice", "EMAIL": "alice@example.com", "status": "accepted",
		},
	}

	for c, raw := range raws {
		once := Normalize(c, raw)
		twice := Normalize(c, once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%s: Normalize not idempotent:\nonce:  %#v\ntwice: %#v", c, once, twice)
		}
	}
}

func TestNormalizeEncodedRecordsUnchanged(t *testing.T) {
	e := DecodeExpense(Raw{
		"id": "e1", "group_id": "g1", "description": "Lunch",
		"amount": "45", "paid_by": "a", "split_between": []string{"a", "b"},
		"date": int64(1700000000),
	})
	encoded := EncodeExpense(e)
	if !reflect.DeepEqual(Normalize(Expenses, encoded), encoded) {
		t.Error("Normalize(Encode(x)) should equal Encode(x)")
	}
}

func TestMerge(t *testing.T) {
	base := Raw{
		"id": "e1", "group_id": "g1", "description": "Dinner",
		"amount": "90", "paid_by": "alice",
		"split_between": []string{"alice", "bob"},
		"date":          int64(1700000000),
	}

	merged := Merge(Expenses, base, Raw{"settled": true, "AMOUNT": "95"})

	if merged["description"] != "Dinner" {
		t.Errorf("description = %v, want Dinner (absent fields keep prior values)", merged["description"])
	}
	if merged["settled"] != true {
		t.Errorf("settled = %v, want true", merged["settled"])
	}
	if amount := merged["amount"].(decimal.Decimal); amount.String() != "95" {
		t.Errorf("amount = %v, want 95", amount)
	}
	if got := merged["splitBetween"].([]string); len(got) != 2 {
		t.Errorf("splitBetween = %v, want 2 entries", got)
	}
}

func TestDecodeGroupMembers(t *testing.T) {
	g := DecodeGroup(Raw{
		"id":   "g1",
		"name": "Roommates",
		"members": []any{
			map[string]any{"id": "a", "name": "Alice", "STATUS": "accepted"},
			map[string]any{"member_id": "ignored", "id": "b", "name": "Bob", "status": "invited"},
		},
		"owner_id":   "a",
		"created_at": int64(1700000000),
	})

	if len(g.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(g.Members))
	}
	if g.Members[0].ID != "a" || g.Members[0].Status != "accepted" {
		t.Errorf("first member = %+v", g.Members[0])
	}
	if g.Members[1].ID != "b" || g.Members[1].Status != "invited" {
		t.Errorf("second member = %+v", g.Members[1])
	}
	if g.OwnerID != "a" {
		t.Errorf("ownerId = %q, want a", g.OwnerID)
	}
}
