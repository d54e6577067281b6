package domain

import "time"

// Role represents a user role.
type Role string

// User roles.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// PermissionWildcard grants any capability.
const PermissionWildcard = "*"

// Base permissions held by every authenticated user regardless of role.
var basePermissions = []string{
	"read:own_profile",
	"update:own_profile",
}

var memberPermissions = []string{
	"project:read",
	"task:read",
	"task:create",
	"task:update",
	"team:read",
	"comment:create",
	"notification:read",
}

var managerPermissions = []string{
	"project:create",
	"project:update",
	"project:delete",
	"project:manage_members",
	"task:delete",
	"team:create",
	"team:update",
	"team:manage_members",
}

// PermissionsForRole maps a role to its permission set.
// Unknown roles receive the base permission set only.
func PermissionsForRole(role Role) []string {
	perms := make([]string, 0, len(basePermissions)+len(memberPermissions)+len(managerPermissions)+1)
	perms = append(perms, basePermissions...)

	switch role {
	case RoleAdmin:
		perms = append(perms, PermissionWildcard)
	case RoleManager:
		perms = append(perms, memberPermissions...)
		perms = append(perms, managerPermissions...)
	case RoleMember:
		perms = append(perms, memberPermissions...)
	}

	return perms
}

// HasPermission reports whether required is present in perms,
// either literally or via the wildcard.
func HasPermission(perms []string, required string) bool {
	for _, p := range perms {
		if p == required || p == PermissionWildcard {
			return true
		}
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayName returns the user's full name.
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Principal is the authenticated identity attached to a request
// after token verification. Lifetime is a single request.
type Principal struct {
	UserID      string
	Email       string
	Role        Role
	Permissions []string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
