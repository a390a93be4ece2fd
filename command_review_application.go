package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// NotificationCounter is the slice of the notification service the review
// workflow pushes count deltas to.
type NotificationCounter interface {
	IncrementCount(category string, n ...int)
	DecrementCount(category string, n ...int)
}

type ReviewApplicationMessage struct {
	ApplicationID string            `json:"application_id" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Application being reviewed."`
	Decision      ApplicationStatus `json:"decision" example:"approved" doc:"Review outcome: approved or rejected."`
	ReviewerID    string            `json:"reviewer_id" example:"8d4f1a22-91c8-4b5e-a3f0-1f2f9a77b001" doc:"Admin performing the review."`
	Notes         string            `json:"notes" doc:"Optional review notes stored with the decision."`
	OnResponse    func(resp *ReviewApplicationResponse)
}

func (r ReviewApplicationMessage) Type() string { return "application.review" }

// ReviewApplicationResponse reports the outcome. EmailSent is false when the
// credential-reset delivery failed; the review itself still succeeded.
type ReviewApplicationResponse struct {
	Application *Application
	Identity    Identity
	Profile     *Profile
	EmailSent   bool
	Success     bool
}

// ReviewApplicationHandler drives the promotion workflow: reject stops after
// recording the decision, approve additionally provisions a live account.
type ReviewApplicationHandler struct {
	repo         RepositoryManager
	provider     CredentialProvider
	activitySink ActivitySink
	logger       Logger
	notifier     NotificationCounter
	locks        *reviewLocks
}

// ReviewOption customizes the review handler.
type ReviewOption func(*ReviewApplicationHandler)

// WithReviewActivitySink sets the sink receiving review and provisioning events.
func WithReviewActivitySink(sink ActivitySink) ReviewOption {
	return func(h *ReviewApplicationHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// WithReviewLogger overrides the default logger.
func WithReviewLogger(logger Logger) ReviewOption {
	return func(h *ReviewApplicationHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// WithReviewNotifier pushes pending-application count deltas after decisions.
func WithReviewNotifier(notifier NotificationCounter) ReviewOption {
	return func(h *ReviewApplicationHandler) {
		h.notifier = notifier
	}
}

func NewReviewApplicationHandler(repo RepositoryManager, provider CredentialProvider, opts ...ReviewOption) *ReviewApplicationHandler {
	h := &ReviewApplicationHandler{
		repo:         repo,
		provider:     provider,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		locks:        newReviewLocks(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *ReviewApplicationHandler) Execute(ctx context.Context, event ReviewApplicationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during application review",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ReviewApplicationHandler) execute(ctx context.Context, event ReviewApplicationMessage) error {
	if event.Decision != ApplicationStatusApproved && event.Decision != ApplicationStatusRejected {
		return goerrors.New("unknown or invalid review decision", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"decision": event.Decision})
	}

	release := h.locks.acquire(event.ApplicationID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	app, err := h.repo.Applications().GetByApplicationID(ctx, event.ApplicationID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrApplicationNotFound.WithMetadata(map[string]any{
				"application_id": event.ApplicationID,
			})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load application for review")
	}

	if app.Status != ApplicationStatusPending {
		return ErrApplicationReviewed.WithMetadata(map[string]any{
			"application_id": app.ID.String(),
			"status":         app.Status,
		})
	}

	if event.Decision == ApplicationStatusRejected {
		return h.reject(ctx, event, app)
	}

	return h.approve(ctx, event, app)
}

func (h *ReviewApplicationHandler) reject(ctx context.Context, event ReviewApplicationMessage, app *Application) error {
	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Applications().GetByApplicationIDTx(ctx, tx, event.ApplicationID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to re-read application inside review transaction")
		}
		if current.Status != ApplicationStatusPending {
			return ErrApplicationReviewed.WithMetadata(map[string]any{
				"application_id": current.ID.String(),
				"status":         current.Status,
			})
		}

		app, err = h.repo.Applications().MarkReviewedTx(ctx, tx, app.ID, ReviewUpdate{
			Status:      ApplicationStatusRejected,
			ReviewedBy:  event.ReviewerID,
			ReviewNotes: event.Notes,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record rejection")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "application rejection transaction failed")
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventApplicationRejected,
		Actor:     ActorRef{ID: event.ReviewerID, Type: "admin"},
		Metadata: map[string]any{
			"application_id": app.ID.String(),
			"kind":           app.Kind,
		},
	})

	if h.notifier != nil {
		h.notifier.DecrementCount(NotificationApplications)
	}

	if event.OnResponse != nil {
		event.OnResponse(&ReviewApplicationResponse{
			Application: app,
			Success:     true,
		})
	}

	return nil
}

// approve records the decision as provisioning, creates the account outside
// the transaction, then promotes the application to approved. An application
// left in provisioning means the decision was recorded but the account does
// not exist yet.
func (h *ReviewApplicationHandler) approve(ctx context.Context, event ReviewApplicationMessage, app *Application) error {
	if err := validateApplicantContact(app.Email, app.Name, app.Phone, h.logger); err != nil {
		return err
	}

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.repo.Applications().GetByApplicationIDTx(ctx, tx, event.ApplicationID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to re-read application inside review transaction")
		}
		if current.Status != ApplicationStatusPending {
			return ErrApplicationReviewed.WithMetadata(map[string]any{
				"application_id": current.ID.String(),
				"status":         current.Status,
			})
		}

		app, err = h.repo.Applications().MarkReviewedTx(ctx, tx, app.ID, ReviewUpdate{
			Status:      ApplicationStatusProvisioning,
			ReviewedBy:  event.ReviewerID,
			ReviewNotes: event.Notes,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record approval decision")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "application approval transaction failed")
	}

	identity, profile, err := provisionAccount(ctx, h.provider, h.repo.Profiles(), accountSpec{
		email:      app.Email,
		name:       app.Name,
		role:       app.Role(),
		status:     ProfileStatusApproved,
		verified:   true,
		company:    app.Company,
		experience: app.Experience,
		idType:     app.IDType,
		idNumber:   app.IDNumber,
		skills:     app.Skills,
		bio:        app.Bio,
		phone:      app.Phone,
		location:   app.Location,
	})
	if err != nil {
		h.logger.Error("account provisioning failed for application %s: %v", app.ID, err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr.WithMetadata(map[string]any{
				"application_id":     app.ID.String(),
				"application_status": ApplicationStatusProvisioning,
			})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account provisioning failed")
	}

	app, err = h.repo.Applications().PromoteStatus(ctx, app.ID, ApplicationStatusApproved)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account created but application could not be promoted").
			WithMetadata(map[string]any{
				"application_id": event.ApplicationID,
				"profile_id":     profile.ID.String(),
			})
	}

	emailSent := sendCredentialReset(ctx, h.provider, h.activitySink, h.logger, app.Email, profile.ID.String())

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventApplicationApproved,
		Actor:     ActorRef{ID: event.ReviewerID, Type: "admin"},
		ProfileID: profile.ID.String(),
		Metadata: map[string]any{
			"application_id": app.ID.String(),
			"kind":           app.Kind,
		},
	})
	h.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountProvisioned,
		Actor:     ActorRef{ID: event.ReviewerID, Type: "admin"},
		ProfileID: profile.ID.String(),
		Metadata: map[string]any{
			"role":       profile.Role,
			"email_sent": emailSent,
		},
	})

	if h.notifier != nil {
		h.notifier.DecrementCount(NotificationApplications)
	}

	if event.OnResponse != nil {
		event.OnResponse(&ReviewApplicationResponse{
			Application: app,
			Identity:    identity,
			Profile:     profile,
			EmailSent:   emailSent,
			Success:     true,
		})
	}

	return nil
}

func (h *ReviewApplicationHandler) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("review activity sink error: %v", err)
	}
}
