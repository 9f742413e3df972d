package domain

import "time"

// RoleName identifies a role a user may hold.
type RoleName string

// User represents a system user. Every user belongs to exactly one tenant.
type User struct {
	ID           string // UUID
	TenantID     string // UUID of the tenant this user belongs to
	Email        string // Unique email address
	Username     string // Unique username
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Roles        []RoleName
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role RoleName) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role is a named role scoped to an entire organization, identified by the
// organization's root tenant. Roles never belong to individual sub-tenants.
type Role struct {
	ID                 string // UUID
	Name               RoleName
	OrganizationRootID string // UUID of the organization's root tenant
}

// Task is a representative domain record owned by a user. Cascade deletion of
// a tenant's direct members removes their tasks as well.
type Task struct {
	ID        string // UUID
	UserID    string
	TenantID  string
	Title     string
	Done      bool
	CreatedAt time.Time
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	Update(user *User) error
	ListByTenant(tenantID string) ([]*User, error)
	CountByTenant(tenantID string) (int, error)
	DeleteByTenant(tenantID string) (int, error)
}

// TaskRepository defines data access for tasks.
type TaskRepository interface {
	Create(task *Task) error
	ListByUser(userID string) ([]*Task, error)
	DeleteByUser(userID string) (int, error)
}

// RoleRepository defines data access for roles.
type RoleRepository interface {
	Create(role *Role) error
	ListByOrganization(rootTenantID string) ([]*Role, error)
}
