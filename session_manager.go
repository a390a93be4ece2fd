package identity

import (
	"context"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionProfileStore is the slice of the profile repository the session
// manager needs.
type SessionProfileStore interface {
	GetByIdentityID(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
}

// SignUpExtra carries optional attributes for self-registration. Status
// overrides the default pending status when set.
type SignUpExtra struct {
	Status   ProfileStatus
	Company  string
	Skills   []string
	Location string
	Phone    string
}

// SessionManager tracks the current identity and its profile for one logical
// session. It owns the Session state exclusively: callers read snapshots and
// never mutate it directly.
//
// Identity-change events are sequenced with a monotonically increasing epoch;
// a profile fetch that resolves after a newer event has arrived is discarded,
// so the session only ever reflects the profile of the most recently received
// identity.
type SessionManager struct {
	mu       sync.Mutex
	provider CredentialProvider
	store    SessionProfileStore

	epoch    uint64
	identity Identity
	profile  *Profile
	loading  bool

	profileCache *cache.Cache
	fetchTimeout time.Duration
	logger       Logger
	activitySink ActivitySink
	unsubscribe  func()
}

// SessionOption customizes session manager construction.
type SessionOption func(*SessionManager)

// WithSessionLogger overrides the default logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionActivitySink sets the sink receiving auth events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(m *SessionManager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithSessionCacheTTL overrides the profile cache TTL.
func WithSessionCacheTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.profileCache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithSessionFetchTimeout bounds asynchronous profile fetches.
func WithSessionFetchTimeout(timeout time.Duration) SessionOption {
	return func(m *SessionManager) {
		if timeout > 0 {
			m.fetchTimeout = timeout
		}
	}
}

// NewSessionManager wires the manager to the credential provider's
// identity-change stream. Call Close to detach it.
func NewSessionManager(provider CredentialProvider, store SessionProfileStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		provider:     provider,
		store:        store,
		profileCache: cache.New(5*time.Minute, 10*time.Minute),
		fetchTimeout: DefaultProviderTimeout,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.unsubscribe = provider.OnIdentityChanged(m.OnIdentityChanged)

	return m
}

// Close detaches the manager from the identity-change stream and drops cached
// profiles. The manager must not be used afterwards.
func (m *SessionManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.profileCache.Flush()
}

// OnIdentityChanged is invoked by the credential provider on sign-in,
// sign-out, and token refresh. A nil identity clears the session immediately;
// a non-nil identity triggers an asynchronous profile fetch whose result is
// applied only if no newer event arrived in the meantime.
func (m *SessionManager) OnIdentityChanged(identity Identity) {
	m.mu.Lock()
	m.epoch++
	token := m.epoch
	m.identity = identity

	if identity == nil {
		m.profile = nil
		m.loading = false
		m.mu.Unlock()
		return
	}

	m.loading = true
	m.mu.Unlock()

	go m.resolveProfile(token, identity)
}

func (m *SessionManager) resolveProfile(token uint64, identity Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), m.fetchTimeout)
	defer cancel()

	profile, err := m.fetchProfile(ctx, identity.ID())

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.epoch {
		// a newer identity-change event won the race; this result is stale
		m.logger.Debug("discarding stale profile fetch for identity %s (token %d)", identity.ID(), token)
		return
	}

	if err != nil {
		if !IsNotFound(err) {
			m.logger.Error("profile fetch failed for identity %s: %v", identity.ID(), err)
		}
		profile = nil
	}

	m.profile = profile
	m.loading = false
}

func (m *SessionManager) fetchProfile(ctx context.Context, id string) (*Profile, error) {
	if cached, ok := m.profileCache.Get(id); ok {
		if profile, ok := cached.(*Profile); ok {
			return profile, nil
		}
	}

	profile, err := m.store.GetByIdentityID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.EnsureStatus()
	m.profileCache.SetDefault(id, profile)
	return profile, nil
}

// SignIn delegates to the credential provider, then fetches the profile for
// the authenticated identity. On failure the session is left unauthenticated.
func (m *SessionManager) SignIn(ctx context.Context, email, secret string) (Identity, *Profile, error) {
	identity, err := m.provider.SignIn(ctx, email, secret)
	if err != nil {
		m.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return nil, nil, err
	}

	profile, err := m.fetchProfile(ctx, identity.ID())
	if err != nil && !IsNotFound(err) {
		return nil, nil, err
	}

	m.setSession(identity, profile)

	m.emitEvent(ctx, ActivityEventLoginSuccess, ActorRef{ID: identity.ID(), Type: "user"}, identity.ID(), map[string]any{
		"email": email,
	})

	return identity, profile, nil
}

// SignUp creates an identity and writes a new profile with the given role and
// default pending status unless extra overrides it.
func (m *SessionManager) SignUp(ctx context.Context, email, secret, displayName string, role UserRole, extra *SignUpExtra) (Identity, *Profile, error) {
	if err := validateSignUp(email, displayName); err != nil {
		return nil, nil, err
	}

	if !role.IsValid() {
		return nil, nil, ErrInvalidRole.WithMetadata(map[string]any{"role": role})
	}

	identity, err := m.provider.CreateIdentity(ctx, email, secret)
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "provider returned a non-uuid identity id")
	}

	profile := &Profile{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		Status:      ProfileStatusPending,
	}

	if extra != nil {
		if extra.Status != "" {
			profile.Status = extra.Status
		}
		profile.Company = extra.Company
		profile.Skills = extra.Skills
		profile.Location = extra.Location
		profile.Phone = extra.Phone
	}

	created, err := m.store.Create(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	m.profileCache.SetDefault(identity.ID(), created)
	m.setSession(identity, created)

	m.emitEvent(ctx, ActivityEventSignUp, ActorRef{ID: identity.ID(), Type: "user"}, identity.ID(), map[string]any{
		"role": role,
	})

	return identity, created, nil
}

// SignOut clears the session. Provider errors are logged, never returned: the
// local clear is authoritative.
func (m *SessionManager) SignOut(ctx context.Context) {
	var actorID string

	m.mu.Lock()
	if m.identity != nil {
		actorID = m.identity.ID()
	}
	m.mu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign out failed, clearing session anyway: %v", err)
	}

	m.mu.Lock()
	m.epoch++
	m.identity = nil
	m.profile = nil
	m.loading = false
	m.mu.Unlock()

	m.profileCache.Flush()

	if actorID != "" {
		m.emitEvent(ctx, ActivityEventSignOut, ActorRef{ID: actorID, Type: "user"}, actorID, nil)
	}
}

// RefreshProfile re-fetches the profile for the current identity, bypassing
// the cache. No-op when unauthenticated.
func (m *SessionManager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()

	if identity == nil {
		return nil
	}

	m.profileCache.Delete(identity.ID())

	profile, err := m.fetchProfile(ctx, identity.ID())
	if err != nil {
		if IsNotFound(err) {
			profile = nil
		} else {
			return err
		}
	}

	m.mu.Lock()
	if m.identity != nil && identity.ID() == m.identity.ID() {
		m.profile = profile
	}
	m.mu.Unlock()

	return nil
}

// Snapshot returns an immutable view of the session state.
func (m *SessionManager) Snapshot() SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return SessionSnapshot{
		Loading:  m.loading,
		Identity: m.identity,
		Profile:  m.profile,
		TakenAt:  time.Now(),
	}
}

// HasRole is false whenever no profile is loaded, otherwise exactly
// profile.Role ∈ allowed.
func (m *SessionManager) HasRole(allowed ...UserRole) bool {
	return m.Snapshot().HasRole(allowed...)
}

// IsVerified reports the current profile's verification flag.
func (m *SessionManager) IsVerified() bool {
	return m.Snapshot().IsVerified()
}

// IsApproved is true iff the current profile status is approved or active.
func (m *SessionManager) IsApproved() bool {
	return m.Snapshot().IsApproved()
}

func (m *SessionManager) setSession(identity Identity, profile *Profile) {
	m.mu.Lock()
	m.epoch++
	m.identity = identity
	m.profile = profile
	m.loading = false
	m.mu.Unlock()
}

func (m *SessionManager) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, profileID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		ProfileID: profileID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	sink := normalizeActivitySink(m.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func validateSignUp(email, displayName string) error {
	err := validation.Errors{
		"email":        validation.Validate(email, validation.Required, is.Email),
		"display_name": validation.Validate(displayName, validation.Required),
	}.Filter()

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "sign up payload is invalid").
			WithTextCode(textCodeMissingFields).
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}
