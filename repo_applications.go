package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApplicationFilter narrows QueryApplications results. Zero fields are ignored.
type ApplicationFilter struct {
	Kind   ApplicationKind
	Status ApplicationStatus
}

// ReviewUpdate is the mutation review writes onto the application record. It
// is applied unconditionally for both approve and reject decisions.
type ReviewUpdate struct {
	Status      ApplicationStatus
	ReviewedBy  string
	ReviewNotes string
}

// Applications is the application repository: the Application Store of the
// core contract. Applications are created by the submission flow outside this
// package and mutated exactly here.
type Applications interface {
	repository.Repository[*Application]

	GetByApplicationID(ctx context.Context, id string) (*Application, error)
	GetByApplicationIDTx(ctx context.Context, tx bun.IDB, id string) (*Application, error)

	MarkReviewed(ctx context.Context, id uuid.UUID, update ReviewUpdate) (*Application, error)
	MarkReviewedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update ReviewUpdate) (*Application, error)

	// PromoteStatus moves provisioning → approved once the account exists.
	PromoteStatus(ctx context.Context, id uuid.UUID, status ApplicationStatus) (*Application, error)

	Query(ctx context.Context, filter ApplicationFilter) ([]*Application, error)
	CountPending(ctx context.Context) (int, error)
}

type applications struct {
	repository.Repository[*Application]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Applications                        = (*applications)(nil)
	_ repository.Repository[*Application] = (*applications)(nil)
)

type ApplicationsOption func(*applications)

// WithApplicationsClock injects a custom clock (useful for tests).
func WithApplicationsClock(clock func() time.Time) ApplicationsOption {
	return func(a *applications) {
		if clock != nil {
			a.now = clock
		}
	}
}

func NewApplicationsRepository(db *bun.DB, opts ...ApplicationsOption) Applications {
	repo := repository.NewRepository[*Application](db, repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(a *Application) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Application, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoApplications := &applications{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoApplications)
		}
	}

	return repoApplications
}

func (a *applications) GetByApplicationID(ctx context.Context, id string) (*Application, error) {
	return a.GetByApplicationIDTx(ctx, a.db, id)
}

func (a *applications) GetByApplicationIDTx(ctx context.Context, tx bun.IDB, id string) (*Application, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Application{}
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

	record.EnsureStatus()
	return record, nil
}

func (a *applications) MarkReviewed(ctx context.Context, id uuid.UUID, update ReviewUpdate) (*Application, error) {
	return a.MarkReviewedTx(ctx, a.db, id, update)
}

func (a *applications) MarkReviewedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update ReviewUpdate) (*Application, error) {
	now := a.now()
	record := &Application{
		ID:          id,
		Status:      update.Status,
		ReviewedBy:  update.ReviewedBy,
		ReviewNotes: update.ReviewNotes,
		LastUpdated: &now,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *applications) PromoteStatus(ctx context.Context, id uuid.UUID, status ApplicationStatus) (*Application, error) {
	now := a.now()
	record := &Application{
		ID:          id,
		Status:      status,
		LastUpdated: &now,
	}

	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

func (a *applications) Query(ctx context.Context, filter ApplicationFilter) ([]*Application, error) {
	var records []*Application
	q := a.db.NewSelect().Model(&records)

	if filter.Kind != "" {
		q = q.Where("?TableAlias.kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}

	if err := q.Order("submitted_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *applications) CountPending(ctx context.Context) (int, error) {
	return a.db.NewSelect().
		Model((*Application)(nil)).
		Where("?TableAlias.status = ?", ApplicationStatusPending).
		Count(ctx)
}
