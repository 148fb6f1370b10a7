package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/notify"
	"github.com/replyhub/autoreply-go/pkg/settings"
	"github.com/replyhub/autoreply-go/pkg/thoughts"
)

// SkipReason explains why a user's run did no work.
type SkipReason string

const (
	SkipDisabled             SkipReason = "disabled"
	SkipMissingCredential    SkipReason = "missing_credential"
	SkipGeneratorUnavailable SkipReason = "generator_unavailable"
	SkipNoAccount            SkipReason = "no_account"
)

// RunResult reports what one per-user pipeline run did.
type RunResult struct {
	Skipped bool
	Reason  SkipReason

	FetchedReviews int
	Sync           SyncStats
	Generation     GenerateStats
	Dispatch       DispatchStats
}

// Config is the pipeline tuning surface.
type Config struct {
	MaxGenerationsPerCycle int
	MaxDispatchPerCycle    int
	SyncLookback           time.Duration
}

// Runner executes the fetch -> sync -> generate -> dispatch pipeline for
// one user at a time.
type Runner struct {
	users    UserStore
	tasks    TaskStore
	notifier notify.Notifier
	logger   *logrus.Logger

	fetcher  *Fetcher
	syncer   *Synchronizer
	generate *GeneratorStage
	dispatch *DispatchStage

	// generatorReady is false when no reply-generator capability is
	// configured (e.g. missing API key); every run skips until it is.
	generatorReady bool
}

// NewRunner wires the pipeline stages. generator may be nil when the LLM
// capability is unconfigured; runs then short-circuit with a skip result.
func NewRunner(api ReviewAPI, tasks TaskStore, users UserStore, generator thoughts.ReviewReplyGenerator, notifier notify.Notifier, logger *logrus.Logger, config Config) (*Runner, error) {
	if api == nil {
		return nil, fmt.Errorf("review API is required")
	}
	if tasks == nil || users == nil {
		return nil, fmt.Errorf("task and user stores are required")
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if config.MaxGenerationsPerCycle < 1 {
		config.MaxGenerationsPerCycle = 5
	}
	if config.MaxDispatchPerCycle < 1 {
		config.MaxDispatchPerCycle = 5
	}
	if config.SyncLookback <= 0 {
		config.SyncLookback = 24 * time.Hour
	}

	return &Runner{
		users:          users,
		tasks:          tasks,
		notifier:       notifier,
		logger:         logger,
		fetcher:        NewFetcher(api, logger, config.SyncLookback),
		syncer:         NewSynchronizer(tasks, notifier, logger),
		generate:       NewGeneratorStage(tasks, generator, notifier, logger, config.MaxGenerationsPerCycle),
		dispatch:       NewDispatchStage(tasks, api, notifier, logger, config.MaxDispatchPerCycle),
		generatorReady: generator != nil,
	}, nil
}

// RunUser executes one full pipeline pass for a user. Precondition misses
// return a skip result, never an error, and do not advance lastRunAt.
// Stage-internal failures degrade (they are captured in task state); only
// fetch-level failures propagate to the caller.
func (r *Runner) RunUser(ctx context.Context, user models.User, manual bool) (*RunResult, error) {
	log := r.logger.WithFields(logrus.Fields{
		"method":  "RunUser",
		"user_id": user.ID,
		"manual":  manual,
	})

	policy := settings.Normalize(settings.FromStored(user.AutoReply))

	if !policy.Enabled {
		log.Warn("Auto-reply disabled, skipping user")
		return &RunResult{Skipped: true, Reason: SkipDisabled}, nil
	}
	if user.GoogleRefreshToken == "" {
		log.Warn("No linked Google credential, skipping user")
		return &RunResult{Skipped: true, Reason: SkipMissingCredential}, nil
	}
	if !r.generatorReady {
		log.Warn("Reply generator unconfigured, skipping user")
		return &RunResult{Skipped: true, Reason: SkipGeneratorUnavailable}, nil
	}

	cred := gmb.Credential{RefreshToken: user.GoogleRefreshToken}

	fetched, err := r.fetcher.Fetch(ctx, cred, user.AutoReply.LastReviewSyncAt)
	if err != nil {
		return nil, fmt.Errorf("review fetch failed: %w", err)
	}
	if fetched.NoAccount {
		return &RunResult{Skipped: true, Reason: SkipNoAccount}, nil
	}

	result := &RunResult{FetchedReviews: fetched.ReviewCount()}
	now := time.Now()

	if result.Sync, err = r.syncer.Sync(ctx, user, policy, fetched, now); err != nil {
		log.WithError(err).Error("Task synchronization failed")
	}

	if result.Generation, err = r.generate.Run(ctx, user); err != nil {
		log.WithError(err).Error("Reply generation stage failed")
	}

	if result.Dispatch, err = r.dispatch.Run(ctx, user, cred, time.Now()); err != nil {
		log.WithError(err).Error("Dispatch stage failed")
	}

	// The run happened (possibly partially); stamp it either way.
	finishedAt := time.Now()
	if err := r.users.StampRun(ctx, user.ID, finishedAt, manual); err != nil {
		log.WithError(err).Error("Failed to stamp run time")
	}
	if !fetched.LatestReviewTime.IsZero() {
		if err := r.users.StampReviewSync(ctx, user.ID, fetched.LatestReviewTime, fetched.LocationTitles()); err != nil {
			log.WithError(err).Error("Failed to advance review sync mark")
		}
	}

	r.notifier.Notify(ctx, user.ID, notify.EventCycleCompleted, map[string]interface{}{
		"fetched":   result.FetchedReviews,
		"created":   result.Sync.Created,
		"generated": result.Generation.Generated,
		"sent":      result.Dispatch.Sent,
		"manual":    manual,
	})

	log.WithFields(logrus.Fields{
		"fetched":   result.FetchedReviews,
		"created":   result.Sync.Created,
		"generated": result.Generation.Generated,
		"sent":      result.Dispatch.Sent,
	}).Info("Completed pipeline run for user")

	return result, nil
}

// RetryGeneration re-queues a generation_failed task for the next cycle.
func (r *Runner) RetryGeneration(ctx context.Context, taskID string) error {
	return r.tasks.RequeueGeneration(ctx, taskID)
}

// RetryDispatch re-queues a delivery_failed task with a fresh schedule time
// one policy delay in the future.
func (r *Runner) RetryDispatch(ctx context.Context, taskID string) error {
	task, err := r.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	user, err := r.users.GetByID(ctx, task.UserID)
	if err != nil {
		return err
	}

	policy := settings.Normalize(settings.FromStored(user.AutoReply))
	scheduledFor := time.Now().Add(time.Duration(policy.DelayMinutes) * time.Minute)

	return r.tasks.RequeueDispatch(ctx, taskID, scheduledFor)
}
