package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type SignUpMessage struct {
	Email       string `json:"email" example:"ama@example.com" doc:"Email for the new account."`
	Password    string `json:"password" doc:"Chosen password."`
	DisplayName string `json:"display_name" example:"Ama Owusu" doc:"Display name for the new account."`
	Role        string `json:"role" example:"tenant" doc:"Requested role; goes through the canonical role mapping."`
	Phone       string `json:"phone_number" doc:"Optional phone number."`
	Location    string `json:"location" doc:"Optional location."`
	OnResponse  func(resp *SignUpResponse)
}

func (s SignUpMessage) Type() string { return "user.signup" }

type SignUpResponse struct {
	Identity Identity
	Profile  *Profile
	Success  bool
}

// SignUpHandler registers a new account without touching any session: the
// identity is created at the provider with the chosen password and the
// profile starts pending.
type SignUpHandler struct {
	repo     RepositoryManager
	provider CredentialProvider
}

func NewSignUpHandler(repo RepositoryManager, provider CredentialProvider) *SignUpHandler {
	return &SignUpHandler{repo: repo, provider: provider}
}

func (h *SignUpHandler) Execute(ctx context.Context, event SignUpMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignUpHandler) execute(ctx context.Context, event SignUpMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := validateSignUp(event.Email, event.DisplayName); err != nil {
		return err
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		return ErrInvalidRole.WithMetadata(map[string]any{"role": event.Role})
	}

	created, err := h.provider.CreateIdentity(ctx, event.Email, event.Password)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(created.ID())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "provider returned a non-uuid identity id")
	}

	profile, err := h.repo.Profiles().Create(ctx, &Profile{
		ID:          id,
		Email:       created.Email(),
		DisplayName: event.DisplayName,
		Role:        role,
		Status:      ProfileStatusPending,
		Phone:       event.Phone,
		Location:    event.Location,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile for new account")
	}

	if event.OnResponse != nil {
		event.OnResponse(&SignUpResponse{
			Identity: created,
			Profile:  profile,
			Success:  true,
		})
	}

	return nil
}
