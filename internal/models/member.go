package models

// MemberStatus tracks the invitation lifecycle of a group member.
// Membership only ever grows: invited members accept, nobody is removed.
type MemberStatus string

const (
	// MemberInvited means the member has been invited but has not
	// joined the group yet.
	MemberInvited MemberStatus = "invited"

	// MemberAccepted means the member has accepted the invitation.
	MemberAccepted MemberStatus = "accepted"
)

// Member represents one person inside a group.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	// Unique within a group.
	ID string

	// Name is the display name of the member.
	Name string

	// Email is the member's email address, used for reminders and
	// invitations. May be empty for members who never registered one.
	Email string

	// Status is the invitation state of this member.
	Status MemberStatus
}
