package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/replyhub/autoreply-go/pkg/db/models"
)

// UserStore persists user records and their embedded auto-reply settings.
type UserStore struct {
	logger *logrus.Logger
	db     *gorm.DB
}

func NewUserStore(logger *logrus.Logger, db *gorm.DB) *UserStore {
	return &UserStore{
		logger: logger,
		db:     db,
	}
}

// ListAutoReplyEnabled returns all users whose auto-reply toggle is on.
func (s *UserStore) ListAutoReplyEnabled(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("autoreply_enabled = ?", true).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-reply users: %w", err)
	}
	return users, nil
}

// GetByID loads a single user.
func (s *UserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return &user, nil
}

// SaveSettings overwrites the user's auto-reply configuration. Owned by the
// config-update path; pipeline timestamps go through the Stamp methods.
func (s *UserStore) SaveSettings(ctx context.Context, userID string, settings models.AutoReplySettings) error {
	err := s.db.WithContext(ctx).
		Table("users").
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"autoreply_enabled":             settings.Enabled,
			"autoreply_delay_minutes":       settings.DelayMinutes,
			"autoreply_tone":                settings.Tone,
			"autoreply_respond_to_positive": settings.RespondToPositive,
			"autoreply_respond_to_neutral":  settings.RespondToNeutral,
			"autoreply_respond_to_negative": settings.RespondToNegative,
			"updated_at":                    time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save auto-reply settings: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"enabled": settings.Enabled,
	}).Debug("Saved auto-reply settings")

	return nil
}

// StampRun records the completion time of a pipeline run for a user.
func (s *UserStore) StampRun(ctx context.Context, userID string, at time.Time, manual bool) error {
	updates := map[string]interface{}{
		"autoreply_last_run_at": at,
		"updated_at":            at,
	}
	if manual {
		updates["autoreply_last_manual_run_at"] = at
	}

	err := s.db.WithContext(ctx).
		Table("users").
		Where("id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to stamp run time: %w", err)
	}
	return nil
}

// StampReviewSync advances the incremental-fetch high-water mark and the
// location snapshot. The mark only moves forward.
func (s *UserStore) StampReviewSync(ctx context.Context, userID string, highWater time.Time, locations []string) error {
	updates := map[string]interface{}{
		"autoreply_last_review_sync_at": highWater,
		"updated_at":                    time.Now(),
	}
	if len(locations) > 0 {
		updates["locations"] = pq.StringArray(locations)
	}

	err := s.db.WithContext(ctx).
		Table("users").
		Where("id = ? AND (autoreply_last_review_sync_at IS NULL OR autoreply_last_review_sync_at <= ?)",
			userID, highWater).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to stamp review sync time: %w", err)
	}
	return nil
}
