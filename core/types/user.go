package types

import (
	"strings"

	"github.com/google/uuid"
)

// Role labels a capability carried by a user account.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleSeller  Role = "SELLER"
	RoleBuyer   Role = "BUYER"
	RoleArbiter Role = "ARBITER"
)

// Valid reports whether the role value is one of the supported constants.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSeller, RoleBuyer, RoleArbiter:
		return true
	default:
		return false
	}
}

// ParseRole normalises a role string to its canonical uppercase form.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is the marketplace participant record. The wallet balance does not
// live here: funds are owned exclusively by the ledger and keyed by user id.
type User struct {
	ID         uuid.UUID
	Name       string
	Phone      string
	Email      string
	Roles      []Role
	TrustScore float64
	Verified   bool
	CreatedAt  int64
}

// DefaultTrustScore is assigned to newly registered users.
const DefaultTrustScore = 100.0

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(r Role) bool {
	if u == nil {
		return false
	}
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Arbiter reports whether the user may resolve disputes. Admins carry
// arbitration authority implicitly.
func (u *User) Arbiter() bool {
	return u.HasRole(RoleArbiter) || u.HasRole(RoleAdmin)
}

// Clone returns a deep copy of the user so callers can mutate the result
// without affecting the stored instance.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]Role(nil), u.Roles...)
	return &clone
}
