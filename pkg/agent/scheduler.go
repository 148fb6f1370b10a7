package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/pipeline"
)

// UserLister is the slice of the user store the scheduler needs.
type UserLister interface {
	ListAutoReplyEnabled(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Scheduler drives the auto-reply pipeline on a fixed interval. Cycles are
// mutually exclusive: a tick that fires while the previous cycle is still
// running is dropped rather than queued.
type Scheduler struct {
	runner *pipeline.Runner
	users  UserLister
	logger *logrus.Logger
	config *SchedulerConfig

	inFlight atomic.Bool
	stopped  chan struct{}
}

func NewScheduler(runner *pipeline.Runner, users UserLister, logger *logrus.Logger, config *SchedulerConfig) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lister is required")
	}
	if config == nil {
		return nil, fmt.Errorf("scheduler config is required")
	}
	return &Scheduler{
		runner:  runner,
		users:   users,
		logger:  logger,
		config:  config,
		stopped: make(chan struct{}),
	}, nil
}

// Run blocks, executing one cycle per scan interval until the context is
// canceled. The first cycle fires immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.stopped)

	if !s.config.Enabled {
		s.logger.Warn("Auto-reply scheduler disabled, idling until shutdown")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.WithField("interval", s.config.ScanInterval.String()).Info("Starting auto-reply scheduler")

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Auto-reply scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// Stopped is closed once Run has returned.
func (s *Scheduler) Stopped() <-chan struct{} {
	return s.stopped
}

// RunCycle processes every enabled user once. Returns false when a previous
// cycle was still in flight and this one was dropped.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("Previous cycle still running, dropping this tick")
		return false
	}
	defer s.inFlight.Store(false)

	log := s.logger.WithField("method", "RunCycle")
	startedAt := time.Now()

	users, err := s.users.ListAutoReplyEnabled(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list enabled users")
		return true
	}
	if len(users) == 0 {
		log.Debug("No users with auto-reply enabled")
		return true
	}

	log.WithField("user_count", len(users)).Info("Starting auto-reply cycle")

	var ran, skipped, failed int
	for _, user := range users {
		select {
		case <-ctx.Done():
			log.Warn("Cycle interrupted by shutdown")
			return true
		default:
		}

		result, err := s.runUserSafely(ctx, user)
		switch {
		case err != nil:
			failed++
			log.WithError(err).WithField("user_id", user.ID).Error("Pipeline run failed for user")
		case result.Skipped:
			skipped++
		default:
			ran++
		}
	}

	log.WithFields(logrus.Fields{
		"ran":      ran,
		"skipped":  skipped,
		"failed":   failed,
		"duration": time.Since(startedAt).String(),
	}).Info("Completed auto-reply cycle")

	return true
}

// runUserSafely isolates a single user's run so a panic cannot take down
// the whole cycle.
func (s *Scheduler) runUserSafely(ctx context.Context, user models.User) (result *pipeline.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline run panicked: %v", r)
		}
	}()
	return s.runner.RunUser(ctx, user, false)
}

// TriggerUser runs the pipeline for one user on demand. Manual runs do not
// contend with the cycle's in-flight flag; store-level status guards make
// concurrent transitions safe.
func (s *Scheduler) TriggerUser(ctx context.Context, userID string) (*pipeline.RunResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.runner.RunUser(ctx, *user, true)
}

// RetryGeneration re-queues a failed generation for the next cycle.
func (s *Scheduler) RetryGeneration(ctx context.Context, taskID string) error {
	return s.runner.RetryGeneration(ctx, taskID)
}

// RetryDispatch re-schedules a failed delivery.
func (s *Scheduler) RetryDispatch(ctx context.Context, taskID string) error {
	return s.runner.RetryDispatch(ctx, taskID)
}
