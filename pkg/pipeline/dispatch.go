package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/notify"
)

// DispatchStage posts generated replies whose schedule time has arrived.
type DispatchStage struct {
	tasks       TaskStore
	api         ReviewAPI
	notifier    notify.Notifier
	logger      *logrus.Logger
	maxPerCycle int
}

func NewDispatchStage(tasks TaskStore, api ReviewAPI, notifier notify.Notifier, logger *logrus.Logger, maxPerCycle int) *DispatchStage {
	return &DispatchStage{
		tasks:       tasks,
		api:         api,
		notifier:    notifier,
		logger:      logger,
		maxPerCycle: maxPerCycle,
	}
}

// DispatchStats summarizes one dispatch pass.
type DispatchStats struct {
	Sent   int
	Failed int
}

// Run posts up to maxPerCycle due replies, earliest-due first. Failures
// park the task in delivery_failed for an explicit retry.
func (d *DispatchStage) Run(ctx context.Context, user models.User, cred gmb.Credential, now time.Time) (DispatchStats, error) {
	log := d.logger.WithFields(logrus.Fields{
		"method":  "DispatchReplies",
		"user_id": user.ID,
	})

	var stats DispatchStats

	batch, err := d.tasks.DueForDispatch(ctx, user.ID, d.maxPerCycle, now)
	if err != nil {
		return stats, err
	}
	if len(batch) == 0 {
		return stats, nil
	}

	log.WithField("batch_size", len(batch)).Debug("Dispatching due replies")

	for _, task := range batch {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		attemptAt := time.Now()

		// A scheduled task must carry a reply; an empty one means state was
		// corrupted somewhere upstream.
		if task.GeneratedReply == "" {
			log.WithField("task_id", task.ID).Error("Scheduled task has no generated reply")
			if storeErr := d.tasks.MarkDeliveryFailed(ctx, task.ID, "generated reply missing", attemptAt); storeErr != nil {
				log.WithError(storeErr).WithField("task_id", task.ID).Error("Failed to record delivery failure")
			}
			stats.Failed++
			continue
		}

		if err := d.api.PostReply(ctx, cred, task.ReviewName, task.GeneratedReply); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"task_id":     task.ID,
				"review_name": task.ReviewName,
			}).Warn("Reply dispatch failed")
			if storeErr := d.tasks.MarkDeliveryFailed(ctx, task.ID, err.Error(), attemptAt); storeErr != nil {
				log.WithError(storeErr).WithField("task_id", task.ID).Error("Failed to record delivery failure")
			}
			stats.Failed++
			d.notifier.Notify(ctx, user.ID, notify.EventTaskFailed, map[string]string{
				"task_id": task.ID,
				"stage":   "dispatch",
				"error":   err.Error(),
			})
			continue
		}

		if err := d.tasks.MarkSent(ctx, task.ID, attemptAt); err != nil {
			log.WithError(err).WithField("task_id", task.ID).Error("Failed to mark task sent")
			continue
		}
		stats.Sent++

		log.WithFields(logrus.Fields{
			"task_id":     task.ID,
			"review_name": task.ReviewName,
		}).Info("Posted review reply")

		d.notifier.Notify(ctx, user.ID, notify.EventTaskSent, map[string]string{
			"task_id":     task.ID,
			"review_name": task.ReviewName,
		})
	}

	return stats, nil
}
