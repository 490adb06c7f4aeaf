package user

type Permission string

const (
	// Time clock
	PermissionClockSelf       Permission = "clock.self"
	PermissionClockViewOwn    Permission = "clock.view_own"
	PermissionClockViewAll    Permission = "clock.view_all"
	PermissionOverrideApprove Permission = "clock.override_approve"

	// Geofence administration
	PermissionGeofenceView   Permission = "geofence.view"
	PermissionGeofenceExpand Permission = "geofence.expand"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionClockSelf,
		PermissionClockViewOwn,
		PermissionClockViewAll,
		PermissionOverrideApprove,
		PermissionGeofenceView,
		PermissionGeofenceExpand,
	},
	RoleManager: {
		PermissionClockSelf,
		PermissionClockViewOwn,
		PermissionClockViewAll,
		PermissionOverrideApprove,
		PermissionGeofenceView,
		PermissionGeofenceExpand,
	},
	RoleWorker: {
		PermissionClockSelf,
		PermissionClockViewOwn,
		PermissionGeofenceView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
