package models

// Role represents an account's platform role.
type Role string

const (
	RoleStudent      Role = "student"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

// AllRoles lists every role an account can hold.
var AllRoles = []Role{RoleStudent, RoleOrganization, RoleAdmin}

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleOrganization, RoleAdmin:
		return Role(s), true
	}
	return "", false
}
