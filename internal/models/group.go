package models

import "errors"

var (
	// ErrEmptyGroupName is returned when a group is created without a name.
	ErrEmptyGroupName = errors.New("group name can't be empty")

	// ErrOwnerNotMember is returned when a group's owner is not in its
	// member list.
	ErrOwnerNotMember = errors.New("group owner must be a member")

	// ErrDuplicateMember is returned when a member id appears twice in a
	// group's member list.
	ErrDuplicateMember = errors.New("duplicate member id in group")
)

// Group represents a set of members sharing expenses.
// A group's identity is immutable once created; its member list grows
// via the invite/accept flow only.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Description is an optional free-text description.
	Description string

	// Members is the ordered member list, unique by Member.ID.
	Members []Member

	// OwnerID is the member who created the group. Must appear in Members.
	OwnerID string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Validate checks the group invariants: non-empty name, owner present in
// the member list, member ids unique.
func (g *Group) Validate() error {
	if g.Name == "" {
		return ErrEmptyGroupName
	}
	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if seen[m.ID] {
			return ErrDuplicateMember
		}
		seen[m.ID] = true
	}
	if g.OwnerID != "" && !seen[g.OwnerID] {
		return ErrOwnerNotMember
	}
	return nil
}

// MemberByID returns the member with the given id, or false if the id is
// not in the group.
func (g *Group) MemberByID(id string) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// HasMember reports whether the given member id belongs to the group.
func (g *Group) HasMember(id string) bool {
	_, ok := g.MemberByID(id)
	return ok
}
