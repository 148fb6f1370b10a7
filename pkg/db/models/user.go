package models

import (
	"time"

	"github.com/lib/pq"
)

// AutoReplySettings is the per-user auto-reply configuration embedded in the
// user record. Sentiment gates are nullable so "never set" and "explicitly
// off" survive round trips; the settings package resolves them into a full
// policy with defaults.
type AutoReplySettings struct {
	Enabled           bool   `gorm:"column:enabled;default:false"`
	DelayMinutes      int    `gorm:"column:delay_minutes;default:0"`
	Tone              string `gorm:"column:tone"`
	RespondToPositive *bool  `gorm:"column:respond_to_positive"`
	RespondToNeutral  *bool  `gorm:"column:respond_to_neutral"`
	RespondToNegative *bool  `gorm:"column:respond_to_negative"`

	// Pipeline-maintained timestamps
	LastRunAt        *time.Time `gorm:"column:last_run_at"`
	LastManualRunAt  *time.Time `gorm:"column:last_manual_run_at"`
	LastReviewSyncAt *time.Time `gorm:"column:last_review_sync_at"`
}

// User represents a business account with a linked Google credential.
type User struct {
	ID           string `gorm:"primaryKey;column:id"`
	Email        string `gorm:"column:email;not null"`
	BusinessName string `gorm:"column:business_name"`

	// Long-lived credential for the Business Profile API. Empty means the
	// user never completed the OAuth link.
	GoogleRefreshToken string `gorm:"column:google_refresh_token"`

	// Snapshot of the location names seen during the last review sync.
	Locations pq.StringArray `gorm:"column:locations;type:text[]"`

	AutoReply AutoReplySettings `gorm:"embedded;embeddedPrefix:autoreply_"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
