package identity_test

import (
	"context"
	"database/sql"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	identity "github.com/homequest/go-identity"
)

// MockCredentialProvider implements identity.CredentialProvider. The
// identity-change listener is stored directly so tests can fire events.
type MockCredentialProvider struct {
	mock.Mock

	mu        sync.Mutex
	listeners []identity.IdentityChangedFunc
}

func (m *MockCredentialProvider) CreateIdentity(ctx context.Context, email, secret string) (identity.Identity, error) {
	args := m.Called(ctx, email, secret)
	return identityResult(args)
}

func (m *MockCredentialProvider) SignIn(ctx context.Context, email, secret string) (identity.Identity, error) {
	args := m.Called(ctx, email, secret)
	return identityResult(args)
}

func (m *MockCredentialProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCredentialProvider) UpdateDisplayName(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockCredentialProvider) SendCredentialReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockCredentialProvider) OnIdentityChanged(fn identity.IdentityChangedFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return func() {}
}

// Emit fires an identity-change event at every registered listener.
func (m *MockCredentialProvider) Emit(ident identity.Identity) {
	m.mu.Lock()
	listeners := append([]identity.IdentityChangedFunc(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ident)
	}
}

func identityResult(args mock.Arguments) (identity.Identity, error) {
	var ident identity.Identity
	if v := args.Get(0); v != nil {
		ident = v.(identity.Identity)
	}
	return ident, args.Error(1)
}

// MockProfiles implements identity.Profiles. The embedded repository interface
// is left nil; tests only exercise the named methods.
type MockProfiles struct {
	mock.Mock
	repository.Repository[*identity.Profile]
}

func (m *MockProfiles) GetByIdentityID(ctx context.Context, id string) (*identity.Profile, error) {
	args := m.Called(ctx, id)
	return profileResult(args)
}

func (m *MockProfiles) GetByIdentityIDTx(ctx context.Context, tx bun.IDB, id string) (*identity.Profile, error) {
	args := m.Called(ctx, tx, id)
	return profileResult(args)
}

func (m *MockProfiles) Create(ctx context.Context, record *identity.Profile, criteria ...repository.InsertCriteria) (*identity.Profile, error) {
	args := m.Called(ctx, record)
	return profileResult(args)
}

func (m *MockProfiles) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Profile, criteria ...repository.InsertCriteria) (*identity.Profile, error) {
	args := m.Called(ctx, tx, record)
	return profileResult(args)
}

func (m *MockProfiles) UpdateStatus(ctx context.Context, id uuid.UUID, status identity.ProfileStatus, opts ...identity.StatusUpdateOption) (*identity.Profile, error) {
	args := m.Called(ctx, id, status, opts)
	return profileResult(args)
}

func (m *MockProfiles) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status identity.ProfileStatus, opts ...identity.StatusUpdateOption) (*identity.Profile, error) {
	args := m.Called(ctx, tx, id, status, opts)
	return profileResult(args)
}

func (m *MockProfiles) Suspend(ctx context.Context, actor identity.ActorRef, profile *identity.Profile, opts ...identity.TransitionOption) (*identity.Profile, error) {
	args := m.Called(ctx, actor, profile, opts)
	return profileResult(args)
}

func (m *MockProfiles) Reinstate(ctx context.Context, actor identity.ActorRef, profile *identity.Profile, opts ...identity.TransitionOption) (*identity.Profile, error) {
	args := m.Called(ctx, actor, profile, opts)
	return profileResult(args)
}

func (m *MockProfiles) Deactivate(ctx context.Context, actor identity.ActorRef, profile *identity.Profile, opts ...identity.TransitionOption) (*identity.Profile, error) {
	args := m.Called(ctx, actor, profile, opts)
	return profileResult(args)
}

func (m *MockProfiles) Query(ctx context.Context, filter identity.ProfileFilter) ([]*identity.Profile, error) {
	args := m.Called(ctx, filter)
	var records []*identity.Profile
	if v := args.Get(0); v != nil {
		records = v.([]*identity.Profile)
	}
	return records, args.Error(1)
}

func (m *MockProfiles) QueryTx(ctx context.Context, tx bun.IDB, filter identity.ProfileFilter) ([]*identity.Profile, error) {
	args := m.Called(ctx, tx, filter)
	var records []*identity.Profile
	if v := args.Get(0); v != nil {
		records = v.([]*identity.Profile)
	}
	return records, args.Error(1)
}

func (m *MockProfiles) CountUnverified(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func profileResult(args mock.Arguments) (*identity.Profile, error) {
	var p *identity.Profile
	if v := args.Get(0); v != nil {
		p = v.(*identity.Profile)
	}
	return p, args.Error(1)
}

// MockApplications implements identity.Applications.
type MockApplications struct {
	mock.Mock
	repository.Repository[*identity.Application]
}

func (m *MockApplications) GetByApplicationID(ctx context.Context, id string) (*identity.Application, error) {
	args := m.Called(ctx, id)
	return applicationResult(args)
}

func (m *MockApplications) GetByApplicationIDTx(ctx context.Context, tx bun.IDB, id string) (*identity.Application, error) {
	args := m.Called(ctx, tx, id)
	return applicationResult(args)
}

func (m *MockApplications) MarkReviewed(ctx context.Context, id uuid.UUID, update identity.ReviewUpdate) (*identity.Application, error) {
	args := m.Called(ctx, id, update)
	return applicationResult(args)
}

func (m *MockApplications) MarkReviewedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update identity.ReviewUpdate) (*identity.Application, error) {
	args := m.Called(ctx, tx, id, update)
	return applicationResult(args)
}

func (m *MockApplications) PromoteStatus(ctx context.Context, id uuid.UUID, status identity.ApplicationStatus) (*identity.Application, error) {
	args := m.Called(ctx, id, status)
	return applicationResult(args)
}

func (m *MockApplications) Query(ctx context.Context, filter identity.ApplicationFilter) ([]*identity.Application, error) {
	args := m.Called(ctx, filter)
	var records []*identity.Application
	if v := args.Get(0); v != nil {
		records = v.([]*identity.Application)
	}
	return records, args.Error(1)
}

func (m *MockApplications) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func applicationResult(args mock.Arguments) (*identity.Application, error) {
	var a *identity.Application
	if v := args.Get(0); v != nil {
		a = v.(*identity.Application)
	}
	return a, args.Error(1)
}

// MockRepositoryManager bundles the repository mocks. RunInTx executes the
// callback with a zero transaction; the mocks never touch it.
type MockRepositoryManager struct {
	profiles     *MockProfiles
	applications *MockApplications
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		profiles:     &MockProfiles{},
		applications: &MockApplications{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Profiles() identity.Profiles {
	return m.profiles
}

func (m *MockRepositoryManager) Applications() identity.Applications {
	return m.applications
}

// memorySink collects activity events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (s *memorySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) types() []identity.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]identity.ActivityEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

func (s *memorySink) has(eventType identity.ActivityEventType) bool {
	for _, t := range s.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

// MockLoginPayload implements identity.LoginPayload
type MockLoginPayload struct {
	Identifier      string
	Password        string
	ExtendedSession bool
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

func (m MockLoginPayload) GetExtendedSession() bool {
	return m.ExtendedSession
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
