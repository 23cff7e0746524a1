// Package roles defines the closed set of account roles, the claim flags that
// represent them on an authenticated identity, and the mapping between the two.
//
// Roles are totally ordered by privilege: User < Admin < MasterAdmin.
package roles

import (
	"errors"
	"fmt"
)

// ErrUnknownRole is returned by Parse for any string outside the role set.
var ErrUnknownRole = errors.New("unknown role")

// Role is an account role. The zero value is not a valid role.
type Role int

const (
	User Role = iota + 1
	Admin
	MasterAdmin
)

// All lists every valid role in privilege order.
var All = []Role{User, Admin, MasterAdmin}

// Parse maps the stored/wire spelling of a role onto the enum.
func Parse(s string) (Role, error) {
	switch s {
	case "user":
		return User, nil
	case "admin":
		return Admin, nil
	case "master_admin":
		return MasterAdmin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// String returns the stored/wire spelling.
func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case Admin:
		return "admin"
	case MasterAdmin:
		return "master_admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	switch r {
	case User, Admin, MasterAdmin:
		return true
	}
	return false
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r >= other
}

// Claims are the boolean flags attached to an authenticated identity and
// checked at request time.
type Claims struct {
	Admin       bool `json:"admin,omitempty"`
	MasterAdmin bool `json:"master_admin,omitempty"`
}

// ClaimsFor returns the exact claim set that represents r. Demotion to User
// yields the empty set, revoking every prior claim.
func ClaimsFor(r Role) Claims {
	switch r {
	case MasterAdmin:
		return Claims{MasterAdmin: true}
	case Admin:
		return Claims{Admin: true}
	case User:
		return Claims{}
	}
	return Claims{}
}

// FromClaims derives the effective role from a claim set. MasterAdmin wins
// over Admin when both flags are present.
func FromClaims(c Claims) Role {
	switch {
	case c.MasterAdmin:
		return MasterAdmin
	case c.Admin:
		return Admin
	default:
		return User
	}
}

// Empty reports whether no claim is set.
func (c Claims) Empty() bool {
	return !c.Admin && !c.MasterAdmin
}

// Consistent reports whether a stored role and a claim set describe the same
// account state.
func Consistent(r Role, c Claims) bool {
	return ClaimsFor(r) == c
}
