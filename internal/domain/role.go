package domain

// Permission levels per resource category.
const (
	PermNone  = 0
	PermRead  = 1
	PermWrite = 2
)

// PermissionCategory names a gated resource group.
type PermissionCategory string

const (
	CategoryTickets     PermissionCategory = "tickets"
	CategoryUsers       PermissionCategory = "users"
	CategoryDepartments PermissionCategory = "departments"
	CategoryAdmin       PermissionCategory = "admin"
)

// Role is a named permission profile with four independent access levels.
type Role struct {
	ID              int64
	Name            string
	Description     string
	PermTickets     int
	PermUsers       int
	PermDepartments int
	PermAdmin       int
	Active          bool
}

// PermissionFor returns the role's level for a category. Unknown categories
// report -1 so callers fail closed.
func (r *Role) PermissionFor(category PermissionCategory) int {
	if r == nil {
		return -1
	}
	switch category {
	case CategoryTickets:
		return r.PermTickets
	case CategoryUsers:
		return r.PermUsers
	case CategoryDepartments:
		return r.PermDepartments
	case CategoryAdmin:
		return r.PermAdmin
	default:
		return -1
	}
}

// ValidPermissionLevel reports whether v is a legal permission value.
func ValidPermissionLevel(v int) bool {
	return v >= PermNone && v <= PermWrite
}
