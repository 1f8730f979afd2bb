package models

// Role identifies which side of a support conversation a user is on.
type Role string

const (
	// RoleRequester is the side opening a support conversation (a student).
	RoleRequester Role = "requester"
	// RoleSupportAgent is the side answering from the shared inbox (teacher/admin).
	RoleSupportAgent Role = "support-agent"
)

// User is an identity resolved from the platform's auth subsystem.
// The relay trusts the (ID, Role, DisplayName) triple as given.
type User struct {
	ID          string `bson:"_id" json:"id"`
	Role        Role   `bson:"role" json:"role"`
	DisplayName string `bson:"display_name" json:"display_name"`
	Token       string `bson:"token,omitempty" json:"-"` // opaque session token, issued elsewhere
}

// IsAgent reports whether the user belongs to the support pool.
func (u *User) IsAgent() bool {
	return u.Role == RoleSupportAgent
}
