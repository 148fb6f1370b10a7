package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/notify"
	"github.com/replyhub/autoreply-go/pkg/thoughts"
)

// GeneratorStage turns detected tasks into scheduled ones by generating
// their reply text.
type GeneratorStage struct {
	tasks       TaskStore
	generator   thoughts.ReviewReplyGenerator
	notifier    notify.Notifier
	logger      *logrus.Logger
	maxPerCycle int
}

func NewGeneratorStage(tasks TaskStore, generator thoughts.ReviewReplyGenerator, notifier notify.Notifier, logger *logrus.Logger, maxPerCycle int) *GeneratorStage {
	return &GeneratorStage{
		tasks:       tasks,
		generator:   generator,
		notifier:    notifier,
		logger:      logger,
		maxPerCycle: maxPerCycle,
	}
}

// GenerateStats summarizes one generation pass.
type GenerateStats struct {
	Generated int
	Failed    int
}

// Run processes up to maxPerCycle detected tasks, oldest first. A failed
// task is parked in generation_failed and left for an explicit retry; the
// rest of the batch keeps going.
func (g *GeneratorStage) Run(ctx context.Context, user models.User) (GenerateStats, error) {
	log := g.logger.WithFields(logrus.Fields{
		"method":  "GenerateReplies",
		"user_id": user.ID,
	})

	var stats GenerateStats

	batch, err := g.tasks.PendingGeneration(ctx, user.ID, g.maxPerCycle)
	if err != nil {
		return stats, err
	}
	if len(batch) == 0 {
		return stats, nil
	}

	log.WithField("batch_size", len(batch)).Debug("Generating replies")

	for _, task := range batch {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		now := time.Now()

		result, err := g.generator.GenerateReply(ctx, thoughts.ReviewContext{
			BusinessName: task.BusinessName,
			LocationName: task.LocationName,
			ReviewerName: task.ReviewerName,
			RatingValue:  task.RatingValue,
			ReviewText:   task.Comment,
			Tone:         task.Tone,
		})
		if err != nil {
			log.WithError(err).WithField("task_id", task.ID).Warn("Reply generation failed")
			if storeErr := g.tasks.MarkGenerationFailed(ctx, task.ID, err.Error(), now); storeErr != nil {
				log.WithError(storeErr).WithField("task_id", task.ID).Error("Failed to record generation failure")
			}
			stats.Failed++
			g.notifier.Notify(ctx, user.ID, notify.EventTaskFailed, map[string]string{
				"task_id": task.ID,
				"stage":   "generation",
				"error":   err.Error(),
			})
			continue
		}

		analysis := models.TaskAnalysis{
			Summary:      result.Summary,
			Sentiment:    result.Sentiment,
			Style:        result.Style,
			CustomerName: result.CustomerName,
		}

		if err := g.tasks.MarkScheduled(ctx, task.ID, result.Reply, analysis, now); err != nil {
			log.WithError(err).WithField("task_id", task.ID).Error("Failed to persist generated reply")
			continue
		}
		stats.Generated++

		g.notifier.Notify(ctx, user.ID, notify.EventTaskScheduled, map[string]interface{}{
			"task_id":       task.ID,
			"review_name":   task.ReviewName,
			"scheduled_for": task.ScheduledFor,
		})
	}

	return stats, nil
}
