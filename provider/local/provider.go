package local

import (
	"context"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	identity "github.com/homequest/go-identity"
)

// MaxLoginAttempts is the maximum number of failed attempts before a cooldown.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window during which the attempt counter applies.
var CoolDownPeriod = 24 * time.Hour

// ErrTooManyLoginAttempts is returned while an identity is cooling down.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")

// ResetDeliveryFunc delivers a credential-reset message. The default
// implementation only logs; real deployments wire an email sender.
type ResetDeliveryFunc func(ctx context.Context, email, resetID string) error

// Provider is the bun-backed reference implementation of
// identity.CredentialProvider. Identity ids are derived deterministically
// from the email so re-provisioning the same address yields the same id.
type Provider struct {
	db     *bun.DB
	idents repository.Repository[*IdentityRecord]
	resets repository.Repository[*CredentialReset]

	mu          sync.Mutex
	subscribers map[int]identity.IdentityChangedFunc
	nextID      int

	deliver ResetDeliveryFunc
	logger  identity.Logger
	now     func() time.Time
}

// Option customizes the provider.
type Option func(*Provider)

// WithLogger overrides the default logger.
func WithLogger(logger identity.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithResetDelivery sets the credential-reset delivery mechanism.
func WithResetDelivery(fn ResetDeliveryFunc) Option {
	return func(p *Provider) {
		if fn != nil {
			p.deliver = fn
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.now = clock
		}
	}
}

func New(db *bun.DB, opts ...Option) *Provider {
	p := &Provider{
		db: db,
		idents: repository.NewRepository[*IdentityRecord](db, repository.ModelHandlers[*IdentityRecord]{
			NewRecord: func() *IdentityRecord { return &IdentityRecord{} },
			GetID: func(r *IdentityRecord) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *IdentityRecord, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
			GetIdentifier: func() string { return "email" },
		}),
		resets: repository.NewRepository[*CredentialReset](db, repository.ModelHandlers[*CredentialReset]{
			NewRecord: func() *CredentialReset { return &CredentialReset{} },
			GetID: func(r *CredentialReset) uuid.UUID {
				if r == nil {
					return uuid.Nil
				}
				return r.ID
			},
			SetID: func(r *CredentialReset, id uuid.UUID) {
				if r != nil {
					r.ID = id
				}
			},
			GetIdentifier: func() string { return "email" },
		}),
		subscribers: map[int]identity.IdentityChangedFunc{},
		logger:      identity.DefaultLogger(),
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if p.deliver == nil {
		p.deliver = p.logDelivery
	}

	return p
}

var _ identity.CredentialProvider = (*Provider)(nil)

// CreateIdentity stores a new credential record. The id is derived from the
// email, so the same address always maps to the same identity id.
func (p *Provider) CreateIdentity(ctx context.Context, email, secret string) (identity.Identity, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if _, err := p.idents.GetByIdentifier(ctx, email); err == nil {
		return nil, identity.ErrEmailAlreadyRegistered.WithMetadata(map[string]any{"email": email})
	} else if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing identity")
	}

	hash, err := identity.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	record := &IdentityRecord{
		Email:      email,
		SecretHash: hash,
	}

	if id, err := hashid.NewUUID(email); err == nil {
		record.ID = id
	}

	created, err := p.idents.Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity").
			WithMetadata(map[string]any{"email": email})
	}

	return toIdentity(created), nil
}

// SignIn verifies the email/secret pair and announces the new identity to
// subscribers. Failed comparisons count against the attempt limit.
func (p *Provider) SignIn(ctx context.Context, email, secret string) (identity.Identity, error) {
	email = normalizeEmail(email)

	record, err := p.idents.GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve identity during sign in")
	}

	now := p.now()
	if record.LastAttemptAt != nil && now.Sub(*record.LastAttemptAt) > CoolDownPeriod {
		record.LoginAttempts = 0
	}

	if record.LoginAttempts >= MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts.WithMetadata(map[string]any{"email": email})
	}

	if err := identity.CompareSecretAndHash(secret, record.SecretHash); err != nil {
		record.LoginAttempts++
		record.LastAttemptAt = &now
		if _, err2 := p.idents.Update(ctx, record, repository.UpdateByID(record.ID.String())); err2 != nil {
			p.logger.Warn("failed to track login attempt: %v", err2)
		}
		return nil, identity.ErrInvalidCredentials
	}

	if record.LoginAttempts > 0 {
		record.LoginAttempts = 0
		record.LastAttemptAt = nil
		if _, err := p.idents.Update(ctx, record, repository.UpdateByID(record.ID.String())); err != nil {
			p.logger.Warn("failed to reset login attempts: %v", err)
		}
	}

	ident := toIdentity(record)
	p.notify(ident)
	return ident, nil
}

// SignOut announces the signed-out state. There is no server-side session to
// tear down in the local provider.
func (p *Provider) SignOut(ctx context.Context) error {
	p.notify(nil)
	return nil
}

// UpdateDisplayName sets the display name on the stored record.
func (p *Provider) UpdateDisplayName(ctx context.Context, id, name string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return identity.ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
	}

	record := &IdentityRecord{ID: parsed, DisplayName: name}
	if _, err := p.idents.Update(ctx, record, repository.UpdateByID(parsed.String())); err != nil {
		if repository.IsRecordNotFound(err) {
			return identity.ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update display name")
	}

	return nil
}

// SendCredentialReset records a reset request and hands it to the delivery
// function.
func (p *Provider) SendCredentialReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	record, err := p.idents.GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return identity.ErrIdentityNotFound.WithMetadata(map[string]any{"email": email})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve identity for credential reset")
	}

	reset := &CredentialReset{
		IdentityID: &record.ID,
		Email:      email,
		Status:     ResetRequestedStatus,
	}

	created, err := p.resets.Create(ctx, reset)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential reset record")
	}

	if err := p.deliver(ctx, email, created.ID.String()); err != nil {
		return goerrors.Wrap(err, identity.ErrResetDelivery.Category, identity.ErrResetDelivery.Message).
			WithTextCode(identity.ErrResetDelivery.TextCode)
	}

	return nil
}

// CompleteCredentialReset consumes a reset token and stores the new secret.
func (p *Provider) CompleteCredentialReset(ctx context.Context, resetID, newSecret string) error {
	parsed, err := uuid.Parse(resetID)
	if err != nil {
		return goerrors.New("unknown or invalid reset token", goerrors.CategoryBadInput)
	}

	reset := &CredentialReset{}
	err = p.db.NewSelect().
		Model(reset).
		Where("?TableAlias.id = ?", parsed).
		Where("?TableAlias.status = ?", ResetRequestedStatus).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.New("unknown or expired reset token", goerrors.CategoryNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load reset record")
	}

	hash, err := identity.HashSecret(newSecret)
	if err != nil {
		return err
	}

	now := p.now()

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &IdentityRecord{ID: *reset.IdentityID, SecretHash: hash}
		if _, err := p.idents.UpdateTx(ctx, tx, record, repository.UpdateByID(reset.IdentityID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new secret")
		}

		reset.Status = ResetCompletedStatus
		reset.CompletedAt = &now
		if _, err := p.resets.UpdateTx(ctx, tx, reset, repository.UpdateByID(reset.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to complete reset record")
		}

		return nil
	})
}

// MarkEmailVerified flips the verification flag for an identity.
func (p *Provider) MarkEmailVerified(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return identity.ErrIdentityNotFound.WithMetadata(map[string]any{"id": id})
	}

	_, err = p.db.NewUpdate().
		Model((*IdentityRecord)(nil)).
		Set("email_verified = ?", true).
		Where("id = ?", parsed).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	return nil
}

// OnIdentityChanged registers a subscriber and returns the function removing
// exactly that registration.
func (p *Provider) OnIdentityChanged(fn identity.IdentityChangedFunc) func() {
	if fn == nil {
		return func() {}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

func (p *Provider) notify(ident identity.Identity) {
	p.mu.Lock()
	subscribers := make([]identity.IdentityChangedFunc, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subscribers = append(subscribers, fn)
	}
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(ident)
	}
}

func (p *Provider) logDelivery(ctx context.Context, email, resetID string) error {
	p.logger.Info("credential reset for %s: /credential-reset/%s", email, resetID)
	return nil
}

func toIdentity(record *IdentityRecord) identity.Identity {
	return identity.AuthIdentity{
		IdentityID:    record.ID.String(),
		EmailAddr:     record.Email,
		Name:          record.DisplayName,
		VerifiedEmail: record.EmailVerified,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	err := validation.Validate(email, validation.Required, is.Email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "email is invalid").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}
