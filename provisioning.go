package identity

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// accountSpec is the shared shape for every administratively provisioned
// account: promotion of an approved application, direct staff users, and
// direct estate-manager users all flow through it.
type accountSpec struct {
	email       string
	name        string
	role        UserRole
	displayRole string
	status      ProfileStatus
	verified    bool
	company     string
	experience  string
	idType      string
	idNumber    string
	skills      []string
	bio         string
	phone       string
	location    string
}

// provisionAccount generates a temporary secret, creates the identity, sets
// its display name, and persists the profile keyed by the new identity id.
// The temporary secret is never surfaced; the account holder receives a
// credential-reset message instead.
func provisionAccount(ctx context.Context, provider CredentialProvider, store Profiles, spec accountSpec) (Identity, *Profile, error) {
	secret := GenerateTemporarySecret()

	created, err := provider.CreateIdentity(ctx, spec.email, secret)
	if err != nil {
		if IsProvisioningConflict(err) {
			return nil, nil, err
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryConflict, "credential provider rejected identity creation").
			WithMetadata(map[string]any{"email": spec.email})
	}

	if err := provider.UpdateDisplayName(ctx, created.ID(), spec.name); err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set display name on new identity")
	}

	id, err := uuid.Parse(created.ID())
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "provider returned a non-uuid identity id")
	}

	status := spec.status
	if status == "" {
		status = ProfileStatusApproved
	}

	displayRole := spec.displayRole
	if displayRole == "" {
		displayRole = spec.role.DisplayName()
	}

	profile := &Profile{
		ID:          id,
		Email:       spec.email,
		DisplayName: spec.name,
		Role:        spec.role,
		DisplayRole: displayRole,
		Status:      status,
		IsVerified:  spec.verified,
		Company:     spec.company,
		Experience:  spec.experience,
		IDType:      spec.idType,
		IDNumber:    spec.idNumber,
		Skills:      spec.skills,
		Bio:         spec.bio,
		Phone:       spec.phone,
		Location:    spec.location,
	}

	persisted, err := store.Create(ctx, profile)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile for new identity").
			WithMetadata(map[string]any{"identity_id": created.ID()})
	}

	return created, persisted, nil
}

// sendCredentialReset delivers the reset message best-effort. A delivery
// failure is logged and recorded, never propagated: the caller only learns
// about it through the returned flag.
func sendCredentialReset(ctx context.Context, provider CredentialProvider, sink ActivitySink, logger Logger, email, profileID string) bool {
	if err := provider.SendCredentialReset(ctx, email); err != nil {
		logger.Warn("credential reset delivery failed for %s: %v", email, err)

		event := ActivityEvent{
			EventType: ActivityEventResetDeliveryFailed,
			Actor:     ActorRef{Type: "system"},
			ProfileID: profileID,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		}
		if sinkErr := normalizeActivitySink(sink).Record(ctx, event); sinkErr != nil {
			logger.Warn("activity sink record error: %v", sinkErr)
		}

		return false
	}

	return true
}

// validateApplicantContact enforces the non-empty email and name the
// promotion contract requires. A phone number, when present, is sanity
// checked but never blocks promotion.
func validateApplicantContact(email, name, phone string, logger Logger) error {
	if email == "" || name == "" {
		return ErrMissingRequiredFields.WithMetadata(map[string]any{
			"email": email,
			"name":  name,
		})
	}

	if phone != "" {
		if parsed, err := phonenumbers.Parse(phone, "GH"); err != nil || !phonenumbers.IsValidNumber(parsed) {
			logger.Warn("applicant phone number failed validation: %s", phone)
		}
	}

	return nil
}

// reviewLocks serializes reviews per application id so two concurrent calls
// for the same application cannot interleave.
type reviewLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newReviewLocks() *reviewLocks {
	return &reviewLocks{locks: map[string]*sync.Mutex{}}
}

func (r *reviewLocks) acquire(id string) func() {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
