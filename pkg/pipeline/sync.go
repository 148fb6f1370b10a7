package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/memory"
	"github.com/replyhub/autoreply-go/pkg/notify"
	"github.com/replyhub/autoreply-go/pkg/settings"
)

// Synchronizer reconciles fetched reviews against existing task records.
type Synchronizer struct {
	tasks    TaskStore
	notifier notify.Notifier
	logger   *logrus.Logger
}

func NewSynchronizer(tasks TaskStore, notifier notify.Notifier, logger *logrus.Logger) *Synchronizer {
	return &Synchronizer{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
	}
}

// SyncStats summarizes one reconciliation pass.
type SyncStats struct {
	Created        int
	ToneRefreshed  int
	ForcedSkipped  int
	GatedOff       int
	DuplicateRaces int
}

// SentimentForRating buckets a numeric star rating: 4 and up is positive,
// exactly 3 is neutral, everything else is negative.
func SentimentForRating(value int) models.Sentiment {
	switch {
	case value >= 4:
		return models.SentimentPositive
	case value == 3:
		return models.SentimentNeutral
	default:
		return models.SentimentNegative
	}
}

// Sync is idempotent over repeated passes: a review maps to at most one
// task no matter how often it is seen.
//
// New tasks are spaced by the policy delay using an anchor that starts at
// the latest pending schedule time (or now) and advances per creation, so a
// burst of simultaneously discovered reviews never fires at once. The
// anchor is global across the user's locations, matching the original
// system's behavior.
func (s *Synchronizer) Sync(ctx context.Context, user models.User, policy settings.Policy, fetched *FetchResult, now time.Time) (SyncStats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"method":  "Sync",
		"user_id": user.ID,
	})

	var stats SyncStats
	delay := time.Duration(policy.DelayMinutes) * time.Minute

	projections, err := s.tasks.ListProjections(ctx, user.ID)
	if err != nil {
		return stats, err
	}

	existing := make(map[string]memory.TaskProjection, len(projections))
	for _, p := range projections {
		existing[p.ReviewName] = p
	}

	// Anchor: one slot past the latest still-pending schedule time, or now
	// when nothing is pending.
	anchor := now
	havePending := false
	for _, p := range projections {
		if p.Status != models.StatusDetected && p.Status != models.StatusScheduled {
			continue
		}
		if !havePending || p.ScheduledFor.After(anchor) {
			anchor = p.ScheduledFor
		}
		havePending = true
	}
	if havePending {
		anchor = anchor.Add(delay)
	}

	var newTasks []models.AutoReplyTask

	for _, lr := range fetched.Reviews {
		for _, review := range lr.Reviews {
			if review.Reply != nil {
				// Someone replied outside this system; stop processing the
				// matching task regardless of its pending state.
				if _, ok := existing[review.Name]; ok {
					if err := s.tasks.MarkSkipped(ctx, user.ID, review.Name, review.Reply.Comment, now); err != nil {
						log.WithError(err).WithField("review_name", review.Name).Error("Failed to skip replied task")
						continue
					}
					stats.ForcedSkipped++
					s.notifier.Notify(ctx, user.ID, notify.EventTaskSkipped, map[string]string{
						"review_name": review.Name,
					})
				}
				continue
			}

			sentiment := SentimentForRating(review.StarRating.Value())
			if !policy.Gate(sentiment) {
				stats.GatedOff++
				continue
			}

			if _, ok := existing[review.Name]; ok {
				// Keep the stored tone tracking live settings; no state
				// transition.
				if err := s.tasks.RefreshTone(ctx, user.ID, review.Name, policy.Tone); err != nil {
					log.WithError(err).WithField("review_name", review.Name).Error("Failed to refresh task tone")
					continue
				}
				stats.ToneRefreshed++
				continue
			}

			task := models.AutoReplyTask{
				ID:           uuid.NewString(),
				UserID:       user.ID,
				ReviewID:     review.ReviewID,
				ReviewName:   review.Name,
				ReviewerName: review.Reviewer.DisplayName,
				BusinessName: user.BusinessName,
				LocationName: lr.Location.Title,
				StarRating:   string(review.StarRating),
				RatingValue:  review.StarRating.Value(),
				Comment:      review.Comment,
				Sentiment:    sentiment,
				Tone:         policy.Tone,
				ScheduledFor: anchor,
				Status:       models.StatusDetected,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			newTasks = append(newTasks, task)
			anchor = anchor.Add(delay)
		}
	}

	result, err := s.tasks.BulkInsert(ctx, newTasks)
	if err != nil {
		return stats, err
	}
	stats.Created = result.Inserted
	stats.DuplicateRaces = result.SkippedDuplicates

	created := newTasks
	if result.SkippedDuplicates > 0 {
		// A concurrent pass won the insert race for some rows. Our IDs only
		// exist in storage if our insert went through, so re-list and keep
		// the rows that carry them.
		created = created[:0:0]
		stored, err := s.tasks.ListProjections(ctx, user.ID)
		if err != nil {
			log.WithError(err).Warn("Failed to re-list tasks after duplicate race, suppressing created events")
		} else {
			ours := make(map[string]struct{}, len(stored))
			for _, p := range stored {
				ours[p.ID] = struct{}{}
			}
			for _, task := range newTasks {
				if _, ok := ours[task.ID]; ok {
					created = append(created, task)
				}
			}
		}
	}

	for _, task := range created {
		s.notifier.Notify(ctx, user.ID, notify.EventTaskCreated, map[string]interface{}{
			"task_id":       task.ID,
			"review_name":   task.ReviewName,
			"sentiment":     task.Sentiment,
			"scheduled_for": task.ScheduledFor,
		})
	}

	log.WithFields(logrus.Fields{
		"created":        stats.Created,
		"tone_refreshed": stats.ToneRefreshed,
		"forced_skipped": stats.ForcedSkipped,
		"gated_off":      stats.GatedOff,
		"duplicates":     stats.DuplicateRaces,
	}).Debug("Synchronized reviews into tasks")

	return stats, nil
}
