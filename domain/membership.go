package domain

import (
	"fmt"
	"time"
)

// Role is the access level a membership grants on a project. Every project is
// expected to carry exactly one owner membership, created together with the
// project itself.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// ParseRole converts a wire value into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("unknown membership role %q", raw)
	}
	return r, nil
}

// Membership is the join entity granting a user a role on a project. The
// (ProjectID, UserID) pair is logically unique; the store does not verify
// that on the client side.
type Membership struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member is a membership joined with the profile email used for display.
type Member struct {
	Membership
	Email string `json:"email,omitempty"`
}

// Profile is the user lookup record backing member display.
type Profile struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
