package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyhub/autoreply-go/pkg/db/models"
)

// TaskStore persists AutoReplyTask rows. Status transitions are single-row
// conditional updates guarded on the expected current status; a guard miss
// means another actor got there first and is logged, not failed, so a task
// that concurrently reached a terminal state is never regressed.
type TaskStore struct {
	logger *logrus.Logger
	db     *gorm.DB
}

func NewTaskStore(logger *logrus.Logger, db *gorm.DB) *TaskStore {
	return &TaskStore{
		logger: logger,
		db:     db,
	}
}

// ListProjections loads the reconciliation view of all tasks for a user.
func (s *TaskStore) ListProjections(ctx context.Context, userID string) ([]TaskProjection, error) {
	var projections []TaskProjection
	err := s.db.WithContext(ctx).
		Table("autoreply_tasks").
		Select("id", "review_name", "tone", "status", "scheduled_for").
		Where("user_id = ?", userID).
		Find(&projections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list task projections: %w", err)
	}
	return projections, nil
}

// BulkInsert creates tasks, silently skipping rows that collide with the
// (user_id, review_name) uniqueness constraint.
func (s *TaskStore) BulkInsert(ctx context.Context, tasks []models.AutoReplyTask) (InsertResult, error) {
	if len(tasks) == 0 {
		return InsertResult{}, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "review_name"}},
			DoNothing: true,
		}).
		Create(&tasks)
	if result.Error != nil {
		return InsertResult{}, fmt.Errorf("failed to bulk insert tasks: %w", result.Error)
	}

	inserted := int(result.RowsAffected)
	outcome := InsertResult{
		Inserted:          inserted,
		SkippedDuplicates: len(tasks) - inserted,
	}

	if outcome.SkippedDuplicates > 0 {
		s.logger.WithFields(logrus.Fields{
			"inserted":           outcome.Inserted,
			"skipped_duplicates": outcome.SkippedDuplicates,
		}).Info("Bulk insert skipped duplicate tasks, concurrent sync assumed")
	}

	return outcome, nil
}

// MarkSkipped forces the task for a review to skipped because a reply
// already exists on the external side. Applies from any non-terminal state.
func (s *TaskStore) MarkSkipped(ctx context.Context, userID, reviewName, externalReply string, now time.Time) error {
	result := s.db.WithContext(ctx).
		Table("autoreply_tasks").
		Where("user_id = ? AND review_name = ? AND status NOT IN ?",
			userID, reviewName, []models.TaskStatus{models.StatusSent, models.StatusSkipped}).
		Updates(map[string]interface{}{
			"status":         models.StatusSkipped,
			"external_reply": externalReply,
			"error":          models.ErrReplyExists,
			"sent_at":        now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark task skipped: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"review_name": reviewName,
		}).Info("Task skipped, review already replied externally")
	}

	return nil
}

// RefreshTone updates the tone on an existing task so it tracks live
// settings. No state transition.
func (s *TaskStore) RefreshTone(ctx context.Context, userID, reviewName, tone string) error {
	err := s.db.WithContext(ctx).
		Table("autoreply_tasks").
		Where("user_id = ? AND review_name = ? AND tone <> ?", userID, reviewName, tone).
		Updates(map[string]interface{}{
			"tone":       tone,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to refresh task tone: %w", err)
	}
	return nil
}

// PendingGeneration returns up to limit tasks awaiting reply generation,
// oldest-created first.
func (s *TaskStore) PendingGeneration(ctx context.Context, userID string, limit int) ([]models.AutoReplyTask, error) {
	var tasks []models.AutoReplyTask
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusDetected).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks pending generation: %w", err)
	}
	return tasks, nil
}

// DueForDispatch returns up to limit generated tasks whose schedule time
// has passed, earliest-due first.
func (s *TaskStore) DueForDispatch(ctx context.Context, userID string, limit int, now time.Time) ([]models.AutoReplyTask, error) {
	var tasks []models.AutoReplyTask
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND scheduled_for <= ?", userID, models.StatusScheduled, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks due for dispatch: %w", err)
	}
	return tasks, nil
}

// MarkScheduled records a successful generation: reply text, the
// generator's analysis, and the detected -> scheduled transition.
func (s *TaskStore) MarkScheduled(ctx context.Context, taskID, reply string, analysis models.TaskAnalysis, now time.Time) error {
	updates := map[string]interface{}{
		"status":          models.StatusScheduled,
		"generated_reply": reply,
		"analysis":        &analysis,
		"error":           "",
		"last_tried_at":   now,
		"updated_at":      now,
	}
	if analysis.Sentiment != "" {
		updates["sentiment"] = models.Sentiment(analysis.Sentiment)
	}
	if analysis.CustomerName != "" {
		updates["customer_name"] = analysis.CustomerName
	}

	return s.conditionalUpdate(ctx, taskID, models.StatusDetected, updates)
}

// MarkGenerationFailed records a generation failure. Guarded on detected so
// a task that concurrently moved on is left alone.
func (s *TaskStore) MarkGenerationFailed(ctx context.Context, taskID, errMsg string, now time.Time) error {
	return s.conditionalUpdate(ctx, taskID, models.StatusDetected, map[string]interface{}{
		"status":        models.StatusGenerationFailed,
		"error":         errMsg,
		"last_tried_at": now,
		"updated_at":    now,
	})
}

// MarkSent records a successful dispatch.
func (s *TaskStore) MarkSent(ctx context.Context, taskID string, now time.Time) error {
	return s.conditionalUpdate(ctx, taskID, models.StatusScheduled, map[string]interface{}{
		"status":        models.StatusSent,
		"error":         "",
		"sent_at":       now,
		"last_tried_at": now,
		"updated_at":    now,
	})
}

// MarkDeliveryFailed records a dispatch failure.
func (s *TaskStore) MarkDeliveryFailed(ctx context.Context, taskID, errMsg string, now time.Time) error {
	return s.conditionalUpdate(ctx, taskID, models.StatusScheduled, map[string]interface{}{
		"status":        models.StatusDeliveryFailed,
		"error":         errMsg,
		"last_tried_at": now,
		"updated_at":    now,
	})
}

// RequeueGeneration resets a failed generation back to detected so the next
// cycle picks it up again. Explicit retry only, never automatic.
func (s *TaskStore) RequeueGeneration(ctx context.Context, taskID string) error {
	return s.conditionalUpdate(ctx, taskID, models.StatusGenerationFailed, map[string]interface{}{
		"status":     models.StatusDetected,
		"error":      "",
		"updated_at": time.Now(),
	})
}

// RequeueDispatch resets a failed delivery back to scheduled with a fresh
// schedule time.
func (s *TaskStore) RequeueDispatch(ctx context.Context, taskID string, scheduledFor time.Time) error {
	return s.conditionalUpdate(ctx, taskID, models.StatusDeliveryFailed, map[string]interface{}{
		"status":        models.StatusScheduled,
		"error":         "",
		"scheduled_for": scheduledFor,
		"updated_at":    time.Now(),
	})
}

// GetTask loads a single task by id.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (*models.AutoReplyTask, error) {
	var task models.AutoReplyTask
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return &task, nil
}

// CountByStatus returns per-status task counts for a user.
func (s *TaskStore) CountByStatus(ctx context.Context, userID string) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Table("autoreply_tasks").
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *TaskStore) conditionalUpdate(ctx context.Context, taskID string, expected models.TaskStatus, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Table("autoreply_tasks").
		Where("id = ? AND status = ?", taskID, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, result.Error)
	}

	if result.RowsAffected == 0 {
		s.logger.WithFields(logrus.Fields{
			"task_id":         taskID,
			"expected_status": expected,
			"target_status":   updates["status"],
		}).Warn("Stale task transition skipped, status changed concurrently")
	}

	return nil
}
