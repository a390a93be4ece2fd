package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileFilter narrows QueryProfiles results. Zero fields are ignored.
type ProfileFilter struct {
	Role       UserRole
	Status     ProfileStatus
	IsVerified *bool
	Location   string
}

// Profiles is the profile repository: the Profile Store of the core contract.
type Profiles interface {
	repository.Repository[*Profile]

	GetByIdentityID(ctx context.Context, id string) (*Profile, error)
	GetByIdentityIDTx(ctx context.Context, tx bun.IDB, id string) (*Profile, error)

	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error)

	Suspend(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
	Reinstate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
	Deactivate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)

	Query(ctx context.Context, filter ProfileFilter) ([]*Profile, error)
	QueryTx(ctx context.Context, tx bun.IDB, filter ProfileFilter) ([]*Profile, error)
	CountUnverified(ctx context.Context) (int, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db                  *bun.DB
	stateMachine        ProfileStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

type ProfilesOption func(*profiles)

func NewProfilesRepository(db *bun.DB, opts ...ProfilesOption) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoProfiles := &profiles{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoProfiles)
		}
	}

	return repoProfiles
}

func WithProfilesStateMachineOptions(options ...StateMachineOption) ProfilesOption {
	return func(p *profiles) {
		if len(options) == 0 {
			return
		}
		p.stateMachineOptions = append(p.stateMachineOptions, options...)
		p.stateMachine = nil
	}
}

func WithProfilesStateMachine(sm ProfileStateMachine) ProfilesOption {
	return func(p *profiles) {
		p.stateMachine = sm
	}
}

func (a *profiles) GetByIdentityID(ctx context.Context, id string) (*Profile, error) {
	return a.GetByIdentityIDTx(ctx, a.db, id)
}

func (a *profiles) GetByIdentityIDTx(ctx context.Context, tx bun.IDB, id string) (*Profile, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", trimmed).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": trimmed})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	prepareProfileDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *profiles) UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *profiles) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error) {
	record := &Profile{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *profiles) Query(ctx context.Context, filter ProfileFilter) ([]*Profile, error) {
	return a.QueryTx(ctx, a.db, filter)
}

func (a *profiles) QueryTx(ctx context.Context, tx bun.IDB, filter ProfileFilter) ([]*Profile, error) {
	var records []*Profile
	q := tx.NewSelect().Model(&records)

	if filter.Role != "" {
		q = q.Where("?TableAlias.user_role = ?", filter.Role)
	}
	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}
	if filter.IsVerified != nil {
		q = q.Where("?TableAlias.is_verified = ?", *filter.IsVerified)
	}
	if filter.Location != "" {
		q = q.Where("?TableAlias.location = ?", filter.Location)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *profiles) CountUnverified(ctx context.Context) (int, error) {
	return a.db.NewSelect().
		Model((*Profile)(nil)).
		Where("?TableAlias.is_verified = ?", false).
		Where("?TableAlias.status NOT IN (?)", bun.In([]ProfileStatus{
			ProfileStatusSuspended,
			ProfileStatusInactive,
		})).
		Count(ctx)
}

func (a *profiles) Suspend(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusSuspended, opts...)
}

func (a *profiles) Reinstate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusActive, opts...)
}

func (a *profiles) Deactivate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusInactive, opts...)
}

// StatusUpdateOption allows callers to mutate the profile record before
// persisting status changes.
type StatusUpdateOption func(*Profile)

// WithVerified sets the verification flag during a status update.
func WithVerified(verified bool) StatusUpdateOption {
	return func(p *Profile) {
		p.IsVerified = verified
	}
}

// WithStatusUpdatedAt overrides the update timestamp recorded with the change.
func WithStatusUpdatedAt(at *time.Time) StatusUpdateOption {
	return func(p *Profile) {
		p.UpdatedAt = at
	}
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.DisplayRole == "" {
		record.DisplayRole = record.Role.DisplayName()
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func (a *profiles) lifecycleMachine() ProfileStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewProfileStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
