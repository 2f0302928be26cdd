package models

import (
	"fmt"
	"strings"
)

// Role is the kind of marketplace account being onboarded.
type Role string

const (
	RoleCreator Role = "creator"
	RoleBrand   Role = "brand"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleBrand
}

// ParseRole accepts "creator" or "brand" in any case. Empty input yields "".
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
