package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identity "github.com/homequest/go-identity"
)

func TestSignUpCreatesPendingProfile(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "ama@example.com"}
	profile := &identity.Profile{
		ID:          identityID,
		Email:       "ama@example.com",
		DisplayName: "Ama Owusu",
		Role:        identity.RoleTenant,
		Status:      identity.ProfileStatusPending,
	}

	provider.On("CreateIdentity", mock.Anything, "ama@example.com", "chosen-password").Return(ident, nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, identityID, record.ID)
			assert.Equal(t, identity.RoleTenant, record.Role)
			assert.Equal(t, identity.ProfileStatusPending, record.Status)
		}).
		Return(profile, nil).Once()

	handler := identity.NewSignUpHandler(repo, provider)

	var resp *identity.SignUpResponse
	err := handler.Execute(ctx, identity.SignUpMessage{
		Email:       "ama@example.com",
		Password:    "chosen-password",
		DisplayName: "Ama Owusu",
		Role:        "tenant",
		OnResponse: func(r *identity.SignUpResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, profile, resp.Profile)

	provider.AssertExpectations(t)
	repo.profiles.AssertExpectations(t)
}

func TestSignUpNormalizesRoleAliases(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "owner@example.com"}
	profile := &identity.Profile{ID: identityID, Role: identity.RoleHomeOwner}

	provider.On("CreateIdentity", mock.Anything, "owner@example.com", "chosen-password").Return(ident, nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, identity.RoleHomeOwner, record.Role)
		}).
		Return(profile, nil).Once()

	handler := identity.NewSignUpHandler(repo, provider)

	err := handler.Execute(ctx, identity.SignUpMessage{
		Email:       "owner@example.com",
		Password:    "chosen-password",
		DisplayName: "Yaw Darko",
		Role:        "Home Owner",
	})
	require.NoError(t, err)
	repo.profiles.AssertExpectations(t)
}

func TestSignUpRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	handler := identity.NewSignUpHandler(repo, provider)

	err := handler.Execute(ctx, identity.SignUpMessage{
		Email:       "ama@example.com",
		Password:    "chosen-password",
		DisplayName: "Ama Owusu",
		Role:        "superuser",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidRole)

	provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignUpRejectsInvalidEmail(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	handler := identity.NewSignUpHandler(repo, provider)

	err := handler.Execute(ctx, identity.SignUpMessage{
		Email:       "not-an-email",
		Password:    "chosen-password",
		DisplayName: "Ama Owusu",
		Role:        "tenant",
	})
	require.Error(t, err)

	provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
}
