package identity

import (
	"context"
	"sync"
)

// Notification categories tracked for the admin dashboard.
const (
	NotificationApplications  = "applications"
	NotificationVerifications = "verifications"
	NotificationMessages      = "messages"
)

// NotificationCounts is a point-in-time copy of per-category counts.
type NotificationCounts map[string]int

// NotificationSubscriber receives the full counts map after every change.
type NotificationSubscriber func(counts NotificationCounts)

// NotificationSource supplies fresh counts from storage. RepositoryManager
// satisfies it through notificationSourceFromRepo.
type NotificationSource interface {
	FetchCounts(ctx context.Context) (NotificationCounts, error)
}

// NotificationSourceFunc adapts a function to NotificationSource.
type NotificationSourceFunc func(ctx context.Context) (NotificationCounts, error)

func (f NotificationSourceFunc) FetchCounts(ctx context.Context) (NotificationCounts, error) {
	if f == nil {
		return NotificationCounts{}, nil
	}
	return f(ctx)
}

// NotificationSourceFromRepo counts pending applications and unverified
// profiles straight from the repositories.
func NotificationSourceFromRepo(repo RepositoryManager) NotificationSource {
	return NotificationSourceFunc(func(ctx context.Context) (NotificationCounts, error) {
		pending, err := repo.Applications().CountPending(ctx)
		if err != nil {
			return nil, err
		}

		unverified, err := repo.Profiles().CountUnverified(ctx)
		if err != nil {
			return nil, err
		}

		return NotificationCounts{
			NotificationApplications:  pending,
			NotificationVerifications: unverified,
		}, nil
	})
}

// NotificationService keeps per-category counts and fans every change out to
// subscribers. Counts never go below zero; fetch failures are logged and the
// last known counts are kept.
type NotificationService struct {
	mu          sync.Mutex
	counts      map[string]int
	subscribers map[int]NotificationSubscriber
	nextID      int
	disposed    bool

	source  NotificationSource
	logger  Logger
	metrics *MetricsCollector
}

var _ NotificationCounter = (*NotificationService)(nil)

// NotificationOption customizes the notification service.
type NotificationOption func(*NotificationService)

// WithNotificationLogger overrides the default logger.
func WithNotificationLogger(logger Logger) NotificationOption {
	return func(s *NotificationService) {
		s.logger = normalizeLogger(logger)
	}
}

// WithNotificationMetrics mirrors the counts onto the collector's gauges.
func WithNotificationMetrics(metrics *MetricsCollector) NotificationOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService builds a service reading fresh counts from source.
// A nil source disables Refresh; counts then only change through the mutators.
func NewNotificationService(source NotificationSource, opts ...NotificationOption) *NotificationService {
	s := &NotificationService{
		counts:      map[string]int{},
		subscribers: map[int]NotificationSubscriber{},
		source:      source,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Dispose drops every subscriber and marks the service closed. Further
// mutations are ignored.
func (s *NotificationService) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	s.subscribers = map[int]NotificationSubscriber{}
}

// Subscribe registers a callback and returns a function that removes exactly
// that registration. The same callback may be registered more than once.
func (s *NotificationService) Subscribe(fn NotificationSubscriber) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Counts returns a copy of the current counts.
func (s *NotificationService) Counts() NotificationCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Count returns the current value for one category, zero if untracked.
func (s *NotificationService) Count(category string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[category]
}

// UpdateCounts merges the given counts into the tracked map and notifies
// subscribers. Categories absent from the argument keep their current value;
// negative values are floored at zero.
func (s *NotificationService) UpdateCounts(counts NotificationCounts) {
	s.mutate(func() {
		for category, count := range counts {
			if count < 0 {
				count = 0
			}
			s.counts[category] = count
		}
	})
}

// IncrementCount adds n to a category, defaulting to one.
func (s *NotificationService) IncrementCount(category string, n ...int) {
	delta := deltaOrOne(n)
	s.mutate(func() {
		s.counts[category] += delta
	})
}

// DecrementCount subtracts n from a category, defaulting to one and never
// going below zero.
func (s *NotificationService) DecrementCount(category string, n ...int) {
	delta := deltaOrOne(n)
	s.mutate(func() {
		s.counts[category] -= delta
		if s.counts[category] < 0 {
			s.counts[category] = 0
		}
	})
}

func deltaOrOne(n []int) int {
	if len(n) == 0 {
		return 1
	}
	return n[0]
}

// MarkAsRead zeroes one category.
func (s *NotificationService) MarkAsRead(category string) {
	s.mutate(func() {
		s.counts[category] = 0
	})
}

// ResetCounts zeroes every tracked category.
func (s *NotificationService) ResetCounts() {
	s.mutate(func() {
		for category := range s.counts {
			s.counts[category] = 0
		}
	})
}

// Refresh reloads counts from the source and notifies subscribers. On error
// the previous counts are kept and the error is logged, never propagated.
func (s *NotificationService) Refresh(ctx context.Context) {
	if s.source == nil {
		return
	}

	counts, err := s.source.FetchCounts(ctx)
	if err != nil {
		s.logger.Warn("notification count refresh failed: %v", err)
		return
	}

	s.UpdateCounts(counts)
}

// mutate applies fn under the lock, then dispatches a snapshot of the counts
// to a snapshot of the subscribers. Snapshotting first means a callback can
// subscribe or unsubscribe mid-dispatch without corrupting the iteration.
func (s *NotificationService) mutate(fn func()) {
	s.mu.Lock()

	if s.disposed {
		s.mu.Unlock()
		return
	}

	fn()

	counts := s.snapshotLocked()
	subscribers := make([]NotificationSubscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}

	s.mu.Unlock()

	for category, count := range counts {
		s.metrics.SetNotificationCount(category, count)
	}

	for _, fn := range subscribers {
		fn(counts)
	}
}

func (s *NotificationService) snapshotLocked() NotificationCounts {
	snapshot := make(NotificationCounts, len(s.counts))
	for category, count := range s.counts {
		snapshot[category] = count
	}
	return snapshot
}
