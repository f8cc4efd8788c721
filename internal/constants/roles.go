package constants

// OpsRole is carried in the ops API token
type OpsRole string

const (
	// RoleOperator may trigger cycles, clear caches and upload files
	RoleOperator OpsRole = "operator"
	// RoleViewer may only read status
	RoleViewer OpsRole = "viewer"
)

func (r OpsRole) String() string { return string(r) }

// Valid reports whether r is a known role
func (r OpsRole) Valid() bool {
	return r == RoleOperator || r == RoleViewer
}

// Actions checked by the ops API permission middleware
const (
	ActionRead  = "read"
	ActionWrite = "write"
)
