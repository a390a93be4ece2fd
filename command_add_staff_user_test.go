package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identity "github.com/homequest/go-identity"
)

func TestAddStaffUser(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "ops@example.com"}
	profile := &identity.Profile{
		ID:          identityID,
		Email:       "ops@example.com",
		DisplayName: "Akosua Mensah",
		Role:        identity.RoleStaff,
		Status:      identity.ProfileStatusApproved,
		IsVerified:  true,
	}

	provider.On("CreateIdentity", mock.Anything, "ops@example.com", mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), "Akosua Mensah").Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, "ops@example.com").Return(nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, identity.RoleStaff, record.Role)
			assert.Equal(t, identity.ProfileStatusApproved, record.Status)
			assert.True(t, record.IsVerified)
		}).
		Return(profile, nil).Once()

	handler := identity.NewAddStaffUserHandler(repo, provider, sink, nil)

	var resp *identity.ProvisionedUserResponse
	err := handler.Execute(ctx, identity.AddStaffUserMessage{
		Email:     "ops@example.com",
		Name:      "Akosua Mensah",
		CreatedBy: "admin-1",
		OnResponse: func(r *identity.ProvisionedUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.EmailSent)
	assert.Equal(t, profile, resp.Profile)

	assert.True(t, sink.has(identity.ActivityEventAccountProvisioned))
	provider.AssertExpectations(t)
	repo.profiles.AssertExpectations(t)
}

func TestAddStaffUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	provider.On("CreateIdentity", mock.Anything, "ops@example.com", mock.AnythingOfType("string")).
		Return(nil, identity.ErrEmailAlreadyRegistered).Once()

	handler := identity.NewAddStaffUserHandler(repo, provider, nil, nil)

	err := handler.Execute(ctx, identity.AddStaffUserMessage{
		Email: "ops@example.com",
		Name:  "Akosua Mensah",
	})
	require.Error(t, err)
	assert.True(t, identity.IsProvisioningConflict(err))

	repo.profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "SendCredentialReset", mock.Anything, mock.Anything)
}

func TestAddStaffUserMissingFields(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	handler := identity.NewAddStaffUserHandler(repo, provider, nil, nil)

	err := handler.Execute(ctx, identity.AddStaffUserMessage{Email: "ops@example.com"})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.ErrMissingRequiredFields.TextCode, richErr.TextCode)

	provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddStaffUserReportsFailedResetDelivery(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "ops@example.com"}
	profile := &identity.Profile{ID: identityID, Role: identity.RoleStaff, Status: identity.ProfileStatusApproved}

	provider.On("CreateIdentity", mock.Anything, "ops@example.com", mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), "Akosua Mensah").Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, "ops@example.com").Return(assert.AnError).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).Return(profile, nil).Once()

	handler := identity.NewAddStaffUserHandler(repo, provider, sink, nil)

	var resp *identity.ProvisionedUserResponse
	err := handler.Execute(ctx, identity.AddStaffUserMessage{
		Email: "ops@example.com",
		Name:  "Akosua Mensah",
		OnResponse: func(r *identity.ProvisionedUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.False(t, resp.EmailSent)
	assert.True(t, sink.has(identity.ActivityEventResetDeliveryFailed))
}
