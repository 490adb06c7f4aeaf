package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleWorker, PermissionClockSelf))
	assert.False(t, HasPermission(RoleWorker, PermissionOverrideApprove))
	assert.False(t, HasPermission(RoleWorker, PermissionClockViewAll))
	assert.True(t, HasPermission(RoleManager, PermissionOverrideApprove))
	assert.True(t, HasPermission(RoleOwner, PermissionGeofenceExpand))
	assert.False(t, HasPermission(Role("contractor"), PermissionClockSelf))
}

func TestActor_Roles(t *testing.T) {
	assert.True(t, Actor{Role: RoleOwner}.IsManager())
	assert.True(t, Actor{Role: RoleManager}.IsManager())
	assert.False(t, Actor{Role: RoleWorker}.IsManager())
	assert.True(t, Actor{Role: RoleManager}.Can(PermissionGeofenceExpand))
}
