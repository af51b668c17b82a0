// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access, issued short-lived tokens
	RoleAdmin UserRole = "admin"

	// Default role for registered directory users
	RoleMember UserRole = "member"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 40
	case RoleMember:
		return 10
	default:
		return 0
	}
}

// RolePredicate decides whether a role may pass a permission gate.
type RolePredicate func(UserRole) bool

// AtLeast returns a predicate accepting target and every role above it.
func AtLeast(target UserRole) RolePredicate {
	return func(role UserRole) bool {
		return role.Valid() && role.AtLeast(target)
	}
}

// OneOf returns a predicate accepting exactly the listed roles.
func OneOf(roles ...UserRole) RolePredicate {
	return func(role UserRole) bool {
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	}
}
