package user

type Role string

const (
	RoleOwner   Role = "owner"   // Business owner - full access
	RoleManager Role = "manager" // Supervises field staff, audits the ledger
	RoleWorker  Role = "worker"  // Field staff clocking in on jobs
)

// Actor is the authenticated caller, passed explicitly into services
// instead of being read from ambient session state.
type Actor struct {
	UserID     string
	BusinessID string
	Role       Role
}

// IsOwner checks if actor is business owner
func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// IsManager checks if actor is manager or owner
func (a Actor) IsManager() bool {
	return a.Role == RoleManager || a.Role == RoleOwner
}

// Can reports whether the actor's role grants permission.
func (a Actor) Can(permission Permission) bool {
	return HasPermission(a.Role, permission)
}
