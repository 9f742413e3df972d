package domain

// Repositories bundles the data-access interfaces a mutation touches. A
// UnitOfWork hands a transaction-bound bundle to the function it runs; the
// in-memory backend hands back its regular repositories unchanged.
type Repositories struct {
	Tenants TenantRepository
	Users   UserRepository
	Tasks   TaskRepository
}

// UnitOfWork runs a function against a single atomic view of storage. The
// Postgres implementation wraps fn in a database transaction and rolls back
// on error; backends without multi-record atomicity run fn directly as a
// sequential best-effort fallback with identical happy-path behavior.
type UnitOfWork interface {
	WithinTx(fn func(repos Repositories) error) error
}
