package domain

// MemberStatus is a user's membership status within a gated community
type MemberStatus string

const (
	StatusMember MemberStatus = "member"
	StatusAdmin  MemberStatus = "administrator"
	StatusOwner  MemberStatus = "creator"
	StatusOther  MemberStatus = "other"
)

// Joined reports whether the status counts as having joined the community
func (s MemberStatus) Joined() bool {
	switch s {
	case StatusMember, StatusAdmin, StatusOwner:
		return true
	}
	return false
}
