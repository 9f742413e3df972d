package domain

import "time"

// Tenant is an organizational unit: a company, department or sub-department.
// Tenants form a forest; ParentID is empty for a root tenant. OwnPermissions
// holds the application permissions granted directly to this tenant; the
// effective set additionally inherits every ancestor's grants.
type Tenant struct {
	ID             string // UUID
	Name           string
	ParentID       string // UUID of parent tenant, empty for roots
	OwnPermissions []PermissionKey
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsRoot reports whether the tenant has no parent.
func (t *Tenant) IsRoot() bool {
	return t.ParentID == ""
}

// HasOwnPermission reports whether key is granted directly on this tenant,
// ignoring inheritance.
func (t *Tenant) HasOwnPermission(key PermissionKey) bool {
	for _, k := range t.OwnPermissions {
		if k == key {
			return true
		}
	}
	return false
}

// TenantNode is a tenant with its resolved children, as produced by tree
// building. Children preserve the insertion order of the input list.
type TenantNode struct {
	ID       string
	Name     string
	Children []*TenantNode
}

// TenantRepository defines data access for tenants.
type TenantRepository interface {
	Create(tenant *Tenant) error
	GetByID(id string) (*Tenant, error)
	Update(tenant *Tenant) error
	Delete(id string) error
	ListByParent(parentID string) ([]*Tenant, error)
	ListRoots() ([]*Tenant, error)
	ListAll() ([]*Tenant, error)
	CountChildren(id string) (int, error)
	CountUsers(id string) (int, error)
}
