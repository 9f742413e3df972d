// Package memory provides map-backed implementations of the domain
// repositories. It is the lightweight backend used by tests and local
// tooling; it has no multi-record atomicity, so its unit of work runs
// mutation functions directly as a sequential best-effort fallback.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// Store holds all in-memory records behind one lock.
type Store struct {
	mu      sync.RWMutex
	tenants []*domain.Tenant
	users   []*domain.User
	tasks   []*domain.Task
	roles   []*domain.Role
	apps    map[domain.PermissionKey]string
}

// NewStore creates an empty store seeded with the built-in application
// registry.
func NewStore() *Store {
	apps := make(map[domain.PermissionKey]string, len(domain.BuiltinApplications))
	for _, a := range domain.BuiltinApplications {
		apps[a.Key] = a.Name
	}
	return &Store{apps: apps}
}

// Tenants returns the tenant repository view of the store.
func (s *Store) Tenants() domain.TenantRepository { return &tenantStore{s} }

// Users returns the user repository view of the store.
func (s *Store) Users() domain.UserRepository { return &userStore{s} }

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() domain.TaskRepository { return &taskStore{s} }

// Roles returns the role repository view of the store.
func (s *Store) Roles() domain.RoleRepository { return &roleStore{s} }

// Applications returns the application registry view of the store.
func (s *Store) Applications() domain.ApplicationRegistry { return &appStore{s} }

// UnitOfWork returns the non-transactional unit of work: the mutation
// function runs directly against the live repositories.
func (s *Store) UnitOfWork() domain.UnitOfWork { return &nopUnitOfWork{s} }

type nopUnitOfWork struct{ s *Store }

func (u *nopUnitOfWork) WithinTx(fn func(repos domain.Repositories) error) error {
	return fn(domain.Repositories{
		Tenants: u.s.Tenants(),
		Users:   u.s.Users(),
		Tasks:   u.s.Tasks(),
	})
}

// tenantStore

type tenantStore struct{ s *Store }

func (t *tenantStore) Create(tenant *domain.Tenant) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	cp := *tenant
	t.s.tenants = append(t.s.tenants, &cp)
	return nil
}

func (t *tenantStore) GetByID(id string) (*domain.Tenant, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, rec := range t.s.tenants {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.NotFoundf("tenant %s", id)
}

func (t *tenantStore) Update(tenant *domain.Tenant) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, rec := range t.s.tenants {
		if rec.ID == tenant.ID {
			tenant.CreatedAt = rec.CreatedAt
			tenant.UpdatedAt = time.Now()
			cp := *tenant
			t.s.tenants[i] = &cp
			return nil
		}
	}
	return domain.NotFoundf("tenant %s", tenant.ID)
}

func (t *tenantStore) Delete(id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, rec := range t.s.tenants {
		if rec.ID == id {
			t.s.tenants = append(t.s.tenants[:i], t.s.tenants[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundf("tenant %s", id)
}

func (t *tenantStore) ListByParent(parentID string) ([]*domain.Tenant, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []*domain.Tenant
	for _, rec := range t.s.tenants {
		if rec.ParentID == parentID && parentID != "" {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *tenantStore) ListRoots() ([]*domain.Tenant, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []*domain.Tenant
	for _, rec := range t.s.tenants {
		if rec.ParentID == "" {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *tenantStore) ListAll() ([]*domain.Tenant, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]*domain.Tenant, 0, len(t.s.tenants))
	for _, rec := range t.s.tenants {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tenantStore) CountChildren(id string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n := 0
	for _, rec := range t.s.tenants {
		if rec.ParentID == id && id != "" {
			n++
		}
	}
	return n, nil
}

func (t *tenantStore) CountUsers(id string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n := 0
	for _, rec := range t.s.users {
		if rec.TenantID == id {
			n++
		}
	}
	return n, nil
}

// userStore

type userStore struct{ s *Store }

func (u *userStore) Create(user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	u.s.users = append(u.s.users, &cp)
	return nil
}

func (u *userStore) GetByID(id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, rec := range u.s.users {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.NotFoundf("user %s", id)
}

func (u *userStore) Update(user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for i, rec := range u.s.users {
		if rec.ID == user.ID {
			user.CreatedAt = rec.CreatedAt
			user.UpdatedAt = time.Now()
			cp := *user
			u.s.users[i] = &cp
			return nil
		}
	}
	return domain.NotFoundf("user %s", user.ID)
}

func (u *userStore) ListByTenant(tenantID string) ([]*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	var out []*domain.User
	for _, rec := range u.s.users {
		if rec.TenantID == tenantID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (u *userStore) CountByTenant(tenantID string) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	n := 0
	for _, rec := range u.s.users {
		if rec.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (u *userStore) DeleteByTenant(tenantID string) (int, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var kept []*domain.User
	removed := 0
	for _, rec := range u.s.users {
		if rec.TenantID == tenantID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	u.s.users = kept
	return removed, nil
}

// taskStore

type taskStore struct{ s *Store }

func (t *taskStore) Create(task *domain.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = time.Now()
	cp := *task
	t.s.tasks = append(t.s.tasks, &cp)
	return nil
}

func (t *taskStore) ListByUser(userID string) ([]*domain.Task, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []*domain.Task
	for _, rec := range t.s.tasks {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *taskStore) DeleteByUser(userID string) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var kept []*domain.Task
	removed := 0
	for _, rec := range t.s.tasks {
		if rec.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	t.s.tasks = kept
	return removed, nil
}

// roleStore

type roleStore struct{ s *Store }

func (r *roleStore) Create(role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	cp := *role
	r.s.roles = append(r.s.roles, &cp)
	return nil
}

func (r *roleStore) ListByOrganization(rootTenantID string) ([]*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Role
	for _, rec := range r.s.roles {
		if rec.OrganizationRootID == rootTenantID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// appStore

type appStore struct{ s *Store }

func (a *appStore) IsValidKey(key domain.PermissionKey) (bool, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	_, ok := a.s.apps[key]
	return ok, nil
}

func (a *appStore) List() ([]*domain.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := make([]*domain.Application, 0, len(a.s.apps))
	for key, name := range a.s.apps {
		out = append(out, &domain.Application{Key: key, Name: name})
	}
	return out, nil
}
