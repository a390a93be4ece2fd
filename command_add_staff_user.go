package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type AddStaffUserMessage struct {
	Email       string `json:"email" example:"ops@example.com" doc:"Email for the new staff account."`
	Name        string `json:"name" example:"Akosua Mensah" doc:"Display name for the new staff account."`
	Phone       string `json:"phone" doc:"Optional phone number."`
	DisplayRole string `json:"display_role" doc:"Optional label shown instead of the default role name."`
	CreatedBy   string `json:"created_by" doc:"Admin creating the account."`
	OnResponse  func(resp *ProvisionedUserResponse)
}

func (a AddStaffUserMessage) Type() string { return "user.add_staff" }

// ProvisionedUserResponse reports a directly provisioned account. EmailSent is
// false when the credential-reset delivery failed; provisioning still succeeded.
type ProvisionedUserResponse struct {
	Identity  Identity
	Profile   *Profile
	EmailSent bool
	Success   bool
}

// AddStaffUserHandler provisions a staff account directly, without an
// application record. The account starts approved and verified.
type AddStaffUserHandler struct {
	repo         RepositoryManager
	provider     CredentialProvider
	activitySink ActivitySink
	logger       Logger
}

func NewAddStaffUserHandler(repo RepositoryManager, provider CredentialProvider, sink ActivitySink, logger Logger) *AddStaffUserHandler {
	return &AddStaffUserHandler{
		repo:         repo,
		provider:     provider,
		activitySink: normalizeActivitySink(sink),
		logger:       normalizeLogger(logger),
	}
}

func (h *AddStaffUserHandler) Execute(ctx context.Context, event AddStaffUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during staff provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AddStaffUserHandler) execute(ctx context.Context, event AddStaffUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := validateApplicantContact(event.Email, event.Name, event.Phone, h.logger); err != nil {
		return err
	}

	identity, profile, err := provisionAccount(ctx, h.provider, h.repo.Profiles(), accountSpec{
		email:       event.Email,
		name:        event.Name,
		role:        RoleStaff,
		displayRole: event.DisplayRole,
		status:      ProfileStatusApproved,
		verified:    true,
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

func recordProvisioned(ctx context.Context, sink ActivitySink, logger Logger, createdBy string, profile *Profile, emailSent bool) {
	event := ActivityEvent{
		EventType:  ActivityEventAccountProvisioned,
		Actor:      ActorRef{ID: createdBy, Type: "admin"},
		ProfileID:  profile.ID.String(),
		OccurredAt: time.Now(),
		Metadata: map[string]any{
			"role":       profile.Role,
			"email_sent": emailSent,
		},
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("provisioning activity sink error: %v", err)
	}
}
