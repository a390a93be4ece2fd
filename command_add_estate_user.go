package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type AddEstateUserMessage struct {
	Email       string `json:"email" example:"manager@estate.example.com" doc:"Email for the new estate manager account."`
	Name        string `json:"name" example:"Kofi Boateng" doc:"Display name for the new account."`
	Phone       string `json:"phone" doc:"Optional phone number."`
	Company     string `json:"company" doc:"Estate or management company the manager belongs to."`
	Location    string `json:"location" doc:"Estate location."`
	DisplayRole string `json:"display_role" doc:"Optional label shown instead of the default role name."`
	CreatedBy   string `json:"created_by" doc:"Admin creating the account."`
	OnResponse  func(resp *ProvisionedUserResponse)
}

func (a AddEstateUserMessage) Type() string { return "user.add_estate_manager" }

// AddEstateUserHandler provisions an estate manager account directly. Like
// staff accounts, the profile starts approved and verified and the manager
// sets their own credentials through the reset flow.
type AddEstateUserHandler struct {
	repo         RepositoryManager
	provider     CredentialProvider
	activitySink ActivitySink
	logger       Logger
}

func NewAddEstateUserHandler(repo RepositoryManager, provider CredentialProvider, sink ActivitySink, logger Logger) *AddEstateUserHandler {
	return &AddEstateUserHandler{
		repo:         repo,
		provider:     provider,
		activitySink: normalizeActivitySink(sink),
		logger:       normalizeLogger(logger),
	}
}

func (h *AddEstateUserHandler) Execute(ctx context.Context, event AddEstateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during estate manager provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AddEstateUserHandler) execute(ctx context.Context, event AddEstateUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := validateApplicantContact(event.Email, event.Name, event.Phone, h.logger); err != nil {
		return err
	}

	identity, profile, err := provisionAccount(ctx, h.provider, h.repo.Profiles(), accountSpec{
		email:       event.Email,
		name:        event.Name,
		role:        RoleEstateManager,
		displayRole: event.DisplayRole,
		status:      ProfileStatusApproved,
		verified:    true,
		company:     event.Company,
		location:    event.Location,
		phone:       event.Phone,
	})
	if err != nil {
		return err
	}

	emailSent := sendCredentialReset(ctx, h.provider, h.activitySink, h.logger, event.Email, profile.ID.String())

	recordProvisioned(ctx, h.activitySink, h.logger, event.CreatedBy, profile, emailSent)

	if event.OnResponse != nil {
		event.OnResponse(&ProvisionedUserResponse{
			Identity:  identity,
			Profile:   profile,
			EmailSent: emailSent,
			Success:   true,
		})
	}

	return nil
}
