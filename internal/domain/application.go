package domain

// PermissionKey identifies a grantable application capability. Keys are only
// valid if they exist in the application registry; free-form strings are
// rejected at grant time.
type PermissionKey string

// Built-in application permission keys.
const (
	PermTodos           PermissionKey = "todos"
	PermIncidentReports PermissionKey = "incident_reports"
	PermPhotoPosts      PermissionKey = "photo_posts"
	PermUserDirectory   PermissionKey = "user_directory"
	PermBulkImport      PermissionKey = "bulk_import"
)

// Application is an entry in the closed catalogue of grantable capabilities.
type Application struct {
	Key  PermissionKey
	Name string
}

// BuiltinApplications is the default registry contents, seeded at migration
// time and used directly by the in-memory backend.
var BuiltinApplications = []Application{
	{Key: PermTodos, Name: "Todos"},
	{Key: PermIncidentReports, Name: "Incident Reports"},
	{Key: PermPhotoPosts, Name: "Photo Posts"},
	{Key: PermUserDirectory, Name: "User Directory"},
	{Key: PermBulkImport, Name: "Bulk Import"},
}

// ApplicationRegistry validates permission keys against the catalogue.
type ApplicationRegistry interface {
	IsValidKey(key PermissionKey) (bool, error)
	List() ([]*Application, error)
}
