package permission

import (
	"errors"
	"sort"
	"strings"
)

// Role is one tier of the account role hierarchy.
//
// The zero value is not a valid role. Values read from storage must go
// through [ParseRole] before they are compared.
type Role string

const (
	// RoleOwner is the single top-level account of a tenant.
	RoleOwner Role = "Owner"
	// RoleAdmin manages every account except the owner.
	RoleAdmin Role = "Admin"
	// RoleManager manages users below the admin tier.
	RoleManager Role = "Manager"
	// RoleUser is the default tier for new accounts.
	RoleUser Role = "User"
)

var (
	// ErrUnknownRole is returned when a role value is outside the closed role set.
	ErrUnknownRole = errors.New("unknown role")
)

var allRoles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleUser}

// Roles returns every known role ordered from highest to lowest rank.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts a stored or user-supplied value into a Role.
// Matching ignores case and surrounding whitespace.
func ParseRole(raw string) (Role, error) {
	trimmed := strings.TrimSpace(raw)
	for _, r := range allRoles {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

// Rank returns the integer position of r in the hierarchy.
// Owner=4, Admin=3, Manager=2, User=1; unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Compare returns -1, 0 or +1 when r ranks below, equal to or above other.
func (r Role) Compare(other Role) int {
	a, b := r.Rank(), other.Rank()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Above reports whether r strictly outranks other.
func (r Role) Above(other Role) bool {
	return r.Rank() > other.Rank()
}

// Below reports whether other strictly outranks r.
func (r Role) Below(other Role) bool {
	return r.Rank() < other.Rank()
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// Equal reports identity. Ranks are unique, so no two distinct roles compare equal.
func (r Role) Equal(other Role) bool {
	return r.Valid() && r == other
}

func (r Role) String() string {
	return string(r)
}

// Set is an allow-list of roles used by role-gated guards.
type Set map[Role]struct{}

// NewSet builds an allow-list from roles. Unknown values are ignored.
func NewSet(roles ...Role) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		if r.Valid() {
			s[r] = struct{}{}
		}
	}
	return s
}

// Contains reports whether r is in the allow-list.
func (s Set) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Slice returns the members of s ordered from highest to lowest rank.
func (s Set) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Above(out[j]) })
	return out
}

// Privileged reports whether r passes every role gate regardless of the
// declared allow-list.
func Privileged(r Role) bool {
	return r == RoleOwner || r == RoleAdmin
}

// Permits reports whether a caller holding r passes a gate declared with allowed.
func Permits(r Role, allowed Set) bool {
	if !r.Valid() {
		return false
	}
	return Privileged(r) || allowed.Contains(r)
}
