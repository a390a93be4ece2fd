package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identity "github.com/homequest/go-identity"
)

func pendingApplication(kind identity.ApplicationKind) *identity.Application {
	return &identity.Application{
		ID:     uuid.New(),
		Kind:   kind,
		Status: identity.ApplicationStatusPending,
		Name:   "Kofi Mensah",
		Email:  "kofi@example.com",
		Phone:  "0244123456",
		Skills: []string{"plumbing"},
	}
}

func TestReviewApplicationReject(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	notifier := identity.NewNotificationService(nil)
	notifier.UpdateCounts(identity.NotificationCounts{
		identity.NotificationApplications: 2,
	})

	app := pendingApplication(identity.ApplicationKindArtisan)
	rejected := &identity.Application{
		ID:          app.ID,
		Kind:        app.Kind,
		Status:      identity.ApplicationStatusRejected,
		ReviewedBy:  "admin-1",
		ReviewNotes: "incomplete documents",
	}

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("GetByApplicationIDTx", mock.Anything, mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("MarkReviewedTx", mock.Anything, mock.Anything, app.ID, identity.ReviewUpdate{
		Status:      identity.ApplicationStatusRejected,
		ReviewedBy:  "admin-1",
		ReviewNotes: "incomplete documents",
	}).Return(rejected, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider,
		identity.WithReviewActivitySink(sink),
		identity.WithReviewNotifier(notifier),
	)

	var resp *identity.ReviewApplicationResponse
	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusRejected,
		ReviewerID:    "admin-1",
		Notes:         "incomplete documents",
		OnResponse: func(r *identity.ReviewApplicationResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, identity.ApplicationStatusRejected, resp.Application.Status)
	assert.Nil(t, resp.Profile)
	assert.False(t, resp.EmailSent)

	// rejection never provisions an account
	provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "SendCredentialReset", mock.Anything, mock.Anything)

	assert.True(t, sink.has(identity.ActivityEventApplicationRejected))
	assert.Equal(t, 1, notifier.Count(identity.NotificationApplications))
	repo.applications.AssertExpectations(t)
}

func TestReviewApplicationApprove(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	app := pendingApplication(identity.ApplicationKindArtisan)
	provisioning := &identity.Application{ID: app.ID, Kind: app.Kind, Status: identity.ApplicationStatusProvisioning}
	approved := &identity.Application{ID: app.ID, Kind: app.Kind, Status: identity.ApplicationStatusApproved}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: app.Email}
	profile := &identity.Profile{
		ID:         identityID,
		Email:      app.Email,
		Role:       identity.RoleArtisan,
		Status:     identity.ProfileStatusApproved,
		IsVerified: true,
	}

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("GetByApplicationIDTx", mock.Anything, mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("MarkReviewedTx", mock.Anything, mock.Anything, app.ID, identity.ReviewUpdate{
		Status:     identity.ApplicationStatusProvisioning,
		ReviewedBy: "admin-1",
	}).Return(provisioning, nil).Once()
	repo.applications.On("PromoteStatus", mock.Anything, app.ID, identity.ApplicationStatusApproved).Return(approved, nil).Once()

	provider.On("CreateIdentity", mock.Anything, app.Email, mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), app.Name).Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, app.Email).Return(nil).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).
		Run(func(args mock.Arguments) {
			record := args.Get(1).(*identity.Profile)
			assert.Equal(t, identityID, record.ID)
			assert.Equal(t, identity.RoleArtisan, record.Role)
			assert.Equal(t, identity.ProfileStatusApproved, record.Status)
			assert.True(t, record.IsVerified)
			assert.Equal(t, app.Skills, record.Skills)
		}).
		Return(profile, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider,
		identity.WithReviewActivitySink(sink),
	)

	var resp *identity.ReviewApplicationResponse
	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusApproved,
		ReviewerID:    "admin-1",
		OnResponse: func(r *identity.ReviewApplicationResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.EmailSent)
	assert.Equal(t, identity.ApplicationStatusApproved, resp.Application.Status)
	assert.Equal(t, profile, resp.Profile)

	assert.True(t, sink.has(identity.ActivityEventApplicationApproved))
	assert.True(t, sink.has(identity.ActivityEventAccountProvisioned))
	provider.AssertExpectations(t)
	repo.applications.AssertExpectations(t)
	repo.profiles.AssertExpectations(t)
}

func TestReviewApplicationApproveSurvivesResetDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}
	sink := &memorySink{}

	app := pendingApplication(identity.ApplicationKindHomeOwner)
	provisioning := &identity.Application{ID: app.ID, Kind: app.Kind, Status: identity.ApplicationStatusProvisioning}
	approved := &identity.Application{ID: app.ID, Kind: app.Kind, Status: identity.ApplicationStatusApproved}

	identityID := uuid.New()
	ident := identity.AuthIdentity{IdentityID: identityID.String(), EmailAddr: app.Email}
	profile := &identity.Profile{ID: identityID, Role: identity.RoleHomeOwner, Status: identity.ProfileStatusApproved}

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("GetByApplicationIDTx", mock.Anything, mock.Anything, app.ID.String()).Return(app, nil).Once()
	repo.applications.On("MarkReviewedTx", mock.Anything, mock.Anything, app.ID, mock.Anything).Return(provisioning, nil).Once()
	repo.applications.On("PromoteStatus", mock.Anything, app.ID, identity.ApplicationStatusApproved).Return(approved, nil).Once()

	provider.On("CreateIdentity", mock.Anything, app.Email, mock.AnythingOfType("string")).Return(ident, nil).Once()
	provider.On("UpdateDisplayName", mock.Anything, identityID.String(), app.Name).Return(nil).Once()
	provider.On("SendCredentialReset", mock.Anything, app.Email).Return(assert.AnError).Once()

	repo.profiles.On("Create", mock.Anything, mock.AnythingOfType("*identity.Profile")).Return(profile, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider,
		identity.WithReviewActivitySink(sink),
	)

	var resp *identity.ReviewApplicationResponse
	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusApproved,
		ReviewerID:    "admin-1",
		OnResponse: func(r *identity.ReviewApplicationResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.False(t, resp.EmailSent)
	assert.True(t, sink.has(identity.ActivityEventResetDeliveryFailed))
}

func TestReviewApplicationAlreadyReviewed(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	app := pendingApplication(identity.ApplicationKindArtisan)
	app.Status = identity.ApplicationStatusApproved

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider)

	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusRejected,
		ReviewerID:    "admin-1",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.ErrApplicationReviewed.TextCode, richErr.TextCode)

	repo.applications.AssertNotCalled(t, "MarkReviewedTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewApplicationReReadGuardCatchesConcurrentReview(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	app := pendingApplication(identity.ApplicationKindArtisan)
	reviewed := &identity.Application{ID: app.ID, Kind: app.Kind, Status: identity.ApplicationStatusRejected}

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()
	// another review won between the load and the transaction
	repo.applications.On("GetByApplicationIDTx", mock.Anything, mock.Anything, app.ID.String()).Return(reviewed, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider)

	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusApproved,
		ReviewerID:    "admin-1",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.ErrApplicationReviewed.TextCode, richErr.TextCode)

	repo.applications.AssertNotCalled(t, "MarkReviewedTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "CreateIdentity", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewApplicationNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	id := uuid.New().String()
	repo.applications.On("GetByApplicationID", mock.Anything, id).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider)

	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: id,
		Decision:      identity.ApplicationStatusApproved,
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.ErrApplicationNotFound.TextCode, richErr.TextCode)
}

func TestReviewApplicationRejectsInvalidDecision(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	handler := identity.NewReviewApplicationHandler(repo, provider)

	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: uuid.New().String(),
		Decision:      identity.ApplicationStatusPending,
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryBadInput, richErr.Category)

	repo.applications.AssertNotCalled(t, "GetByApplicationID", mock.Anything, mock.Anything)
}

func TestReviewApplicationApproveRequiresContactDetails(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	provider := &MockCredentialProvider{}

	app := pendingApplication(identity.ApplicationKindArtisan)
	app.Email = ""

	repo.applications.On("GetByApplicationID", mock.Anything, app.ID.String()).Return(app, nil).Once()

	handler := identity.NewReviewApplicationHandler(repo, provider)

	err := handler.Execute(ctx, identity.ReviewApplicationMessage{
		ApplicationID: app.ID.String(),
		Decision:      identity.ApplicationStatusApproved,
		ReviewerID:    "admin-1",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.ErrMissingRequiredFields.TextCode, richErr.TextCode)

	repo.applications.AssertNotCalled(t, "MarkReviewedTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
