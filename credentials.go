package identity

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Identity holds the attributes of a credential-provider record. Profiles
// reference identities by id and never copy credential data.
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	EmailVerified() bool
}

// IdentityChangedFunc is invoked whenever the authenticated identity changes:
// sign-in, sign-out, or token refresh. A nil identity means signed out.
type IdentityChangedFunc func(identity Identity)

// CredentialProvider issues and validates identities and delivers
// credential-reset messages. Implementations live outside this package; the
// in-process reference implementation is provider/local.
type CredentialProvider interface {
	CreateIdentity(ctx context.Context, email, secret string) (Identity, error)
	SignIn(ctx context.Context, email, secret string) (Identity, error)
	SignOut(ctx context.Context) error
	UpdateDisplayName(ctx context.Context, id, name string) error
	SendCredentialReset(ctx context.Context, email string) error
	OnIdentityChanged(fn IdentityChangedFunc) (unsubscribe func())
}

// AuthIdentity is a plain value implementation of Identity.
type AuthIdentity struct {
	IdentityID    string
	EmailAddr     string
	Name          string
	VerifiedEmail bool
}

func (a AuthIdentity) ID() string          { return a.IdentityID }
func (a AuthIdentity) Email() string       { return a.EmailAddr }
func (a AuthIdentity) DisplayName() string { return a.Name }
func (a AuthIdentity) EmailVerified() bool { return a.VerifiedEmail }

var _ Identity = AuthIdentity{}

// DefaultProviderTimeout bounds every credential provider call so a stalled
// provider surfaces an error instead of hanging the session.
var DefaultProviderTimeout = 10 * time.Second

// BoundedCredentialProvider wraps a provider with a per-call deadline.
type BoundedCredentialProvider struct {
	provider CredentialProvider
	timeout  time.Duration
}

// WithTimeout decorates the given provider. A zero or negative timeout falls
// back to DefaultProviderTimeout.
func WithTimeout(provider CredentialProvider, timeout time.Duration) *BoundedCredentialProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &BoundedCredentialProvider{provider: provider, timeout: timeout}
}

func (b *BoundedCredentialProvider) CreateIdentity(ctx context.Context, email, secret string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	identity, err := b.provider.CreateIdentity(ctx, email, secret)
	return identity, b.mapDeadline(err)
}

func (b *BoundedCredentialProvider) SignIn(ctx context.Context, email, secret string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	identity, err := b.provider.SignIn(ctx, email, secret)
	return identity, b.mapDeadline(err)
}

func (b *BoundedCredentialProvider) SignOut(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.mapDeadline(b.provider.SignOut(ctx))
}

func (b *BoundedCredentialProvider) UpdateDisplayName(ctx context.Context, id, name string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.mapDeadline(b.provider.UpdateDisplayName(ctx, id, name))
}

func (b *BoundedCredentialProvider) SendCredentialReset(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.mapDeadline(b.provider.SendCredentialReset(ctx, email))
}

func (b *BoundedCredentialProvider) OnIdentityChanged(fn IdentityChangedFunc) func() {
	return b.provider.OnIdentityChanged(fn)
}

func (b *BoundedCredentialProvider) mapDeadline(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, ErrProviderTimeout.Category, ErrProviderTimeout.Message).
			WithTextCode(ErrProviderTimeout.TextCode)
	}
	return err
}

var _ CredentialProvider = (*BoundedCredentialProvider)(nil)
