package model

import (
	"slices"
	"time"
)

// Access groups.
const (
	GroupRecipes   = "rezepte_users"
	GroupCospend   = "cospend"
	GroupFitness   = "fitness"
	GroupMarioKart = "mario_kart"
	GroupAdmin     = "admin"
)

// AccessGroups lists every known access group.
var AccessGroups = []string{GroupRecipes, GroupCospend, GroupFitness, GroupMarioKart, GroupAdmin}

// User is a login account.
type User struct {
	Username  string    `json:"username"`
	PassHash  string    `json:"-"`
	Access    []string  `json:"access"`
	CreatedAt time.Time `json:"created_at"`
}

// HasGroup reports whether the user may access group. Admins may access everything.
func (u *User) HasGroup(group string) bool {
	return HasGroup(u.Access, group)
}

// HasGroup checks an access list for group or admin.
func HasGroup(access []string, group string) bool {
	return slices.Contains(access, group) || slices.Contains(access, GroupAdmin)
}

// IsValidGroup reports whether group is one of AccessGroups.
func IsValidGroup(group string) bool {
	return slices.Contains(AccessGroups, group)
}
