package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	identity "github.com/homequest/go-identity"
)

func TestProfileEnsureStatus(t *testing.T) {
	profile := &identity.Profile{}
	profile.EnsureStatus()
	assert.Equal(t, identity.ProfileStatusPending, profile.Status)

	profile.Status = identity.ProfileStatusActive
	profile.EnsureStatus()
	assert.Equal(t, identity.ProfileStatusActive, profile.Status)
}

func TestProfileApprovalStates(t *testing.T) {
	profile := &identity.Profile{Status: identity.ProfileStatusPending}
	assert.False(t, profile.IsApproved())
	assert.False(t, profile.IsSuspended())

	profile.Status = identity.ProfileStatusApproved
	assert.True(t, profile.IsApproved())

	profile.Status = identity.ProfileStatusActive
	assert.True(t, profile.IsApproved())

	profile.Status = identity.ProfileStatusSuspended
	assert.False(t, profile.IsApproved())
	assert.True(t, profile.IsSuspended())
}

func TestApplicationEnsureStatus(t *testing.T) {
	app := &identity.Application{}
	app.EnsureStatus()
	assert.Equal(t, identity.ApplicationStatusPending, app.Status)
}

func TestApplicationIsTerminal(t *testing.T) {
	app := &identity.Application{Status: identity.ApplicationStatusPending}
	assert.False(t, app.IsTerminal())

	for _, status := range []identity.ApplicationStatus{
		identity.ApplicationStatusProvisioning,
		identity.ApplicationStatusApproved,
		identity.ApplicationStatusRejected,
	} {
		app.Status = status
		assert.True(t, app.IsTerminal(), string(status))
	}
}

func TestApplicationRole(t *testing.T) {
	owner := &identity.Application{Kind: identity.ApplicationKindHomeOwner}
	assert.Equal(t, identity.RoleHomeOwner, owner.Role())

	artisan := &identity.Application{Kind: identity.ApplicationKindArtisan}
	assert.Equal(t, identity.RoleArtisan, artisan.Role())
}
