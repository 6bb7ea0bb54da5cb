package domain

import "strings"

// Role is a CRM access label. Labels outside the constants below are kept
// verbatim and only satisfy an allow-list that names them.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleSalesperson Role = "salesperson"
)

// ParseRole normalizes a stored label. Unknown labels are returned as-is.
func ParseRole(label string) Role {
	return Role(strings.ToLower(strings.TrimSpace(label)))
}

func (r Role) String() string {
	return string(r)
}
