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

func TestAddEstateUser(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "manager@estate.example.com"}
	profile := &identity.Profile{
		ID:          identityID,
		Email:       "manager@estate.example.com",
		DisplayName: "Kofi Boateng",
		Role:        identity.RoleEstateManager,
		Status:      identity.ProfileStatusApproved,
		IsVerified:  true,
		Company:     "Lakeside Estates",
		Location:    "Tema",
	}

	provider.On("CreateIdentity", mock.Anything, "manager@estate.example.com", mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), "Kofi Boateng").Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, "manager@estate.example.com").Return(nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, identity.RoleEstateManager, record.Role)
			assert.Equal(t, identity.ProfileStatusApproved, record.Status)
			assert.Equal(t, "Lakeside Estates", record.Company)
			assert.Equal(t, "Tema", record.Location)
			assert.True(t, record.IsVerified)
		}).
		Return(profile, nil).Once()

	handler := identity.NewAddEstateUserHandler(repo, provider, sink, nil)

	var resp *identity.ProvisionedUserResponse
	err := handler.Execute(ctx, identity.AddEstateUserMessage{
		Email:     "manager@estate.example.com",
		Name:      "Kofi Boateng",
		Company:   "Lakeside Estates",
		Location:  "Tema",
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

func TestAddEstateUserCustomDisplayRole(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: "manager@estate.example.com"}
	profile := &identity.Profile{ID: identityID, Role: identity.RoleEstateManager, DisplayRole: "Facility Lead"}

	provider.On("CreateIdentity", mock.Anything, "manager@estate.example.com", mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), "Kofi Boateng").Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, "manager@estate.example.com").Return(nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, "Facility Lead", record.DisplayRole)
		}).
		Return(profile, nil).Once()

	handler := identity.NewAddEstateUserHandler(repo, provider, nil, nil)

	err := handler.Execute(ctx, identity.AddEstateUserMessage{
		Email:       "manager@estate.example.com",
		Name:        "Kofi Boateng",
		DisplayRole: "Facility Lead",
	})
	require.NoError(t, err)
	repo.profiles.AssertExpectations(t)
}
