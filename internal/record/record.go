// Package record normalizes loosely typed store records into canonical
// form and converts between raw records and the typed domain models.
//
// Records coming out of the persistence layer are arbitrary maps whose
// keys may use any of several naming conventions for the same logical
// field ("groupId", "group_id", "GROUP_ID"). Every consumer in this
// codebase goes through Normalize first and only ever sees canonical
// camelCase keys with well-defined value types.
package record

// Collection names the four logical record collections of the store.
type Collection string

const (
	Users       Collection = "users"
	Groups      Collection = "groups"
	Expenses    Collection = "expenses"
	Settlements Collection = "settlements"
)

// Raw is a loosely typed record as exchanged with a persistence store or
// a change-notification bus.
type Raw = map[string]any

// kind selects the coercion and default applied to a canonical field.
type kind int

const (
	kindString kind = iota // default ""
	kindAmount             // decimal.Decimal, default 0
	kindBool               // default false
	kindTime               // Unix seconds, default now
	kindIDList             // []string, default empty
	kindMembers            // []Raw of member records, default empty
)

type field struct {
	name string // canonical camelCase key
	kind kind
}

// schema declares, per collection, the canonical fields and their kinds.
// Normalize resolves each field by trying the camelCase key, then
// snake_case, then UPPER_SNAKE; first present-and-non-nil wins.
var schema = map[Collection][]field{
	Users: {
		{"id", kindString},
		{"name", kindString},
		{"email", kindString},
		{"status", kindString},
	},
	Groups: {
		{"id", kindString},
		{"name", kindString},
		{"description", kindString},
		{"members", kindMembers},
		{"ownerId", kindString},
		{"createdAt", kindTime},
	},
	Expenses: {
		{"id", kindString},
		{"groupId", kindString},
		{"description", kindString},
		{"amount", kindAmount},
		{"paidBy", kindString},
		{"splitBetween", kindIDList},
		{"date", kindTime},
		{"createdBy", kindString},
		{"settled", kindBool},
	},
	Settlements: {
		{"id", kindString},
		{"groupId", kindString},
		{"fromMember", kindString},
		{"toMember", kindString},
		{"amount", kindAmount},
		{"date", kindTime},
		{"confirmed", kindBool},
		{"description", kindString},
		{"expenseId", kindString},
	},
}
