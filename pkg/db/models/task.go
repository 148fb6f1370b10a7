package models

import (
	"time"
)

// TaskStatus represents the lifecycle state of an auto-reply task
type TaskStatus string

const (
	StatusDetected         TaskStatus = "detected"
	StatusScheduled        TaskStatus = "scheduled"
	StatusGenerationFailed TaskStatus = "generation_failed"
	StatusDeliveryFailed   TaskStatus = "delivery_failed"
	StatusSent             TaskStatus = "sent"
	StatusSkipped          TaskStatus = "skipped"
)

// Terminal reports whether no further pipeline work applies to a task in
// this status.
func (s TaskStatus) Terminal() bool {
	return s == StatusSent || s == StatusSkipped
}

// Sentiment is the coarse rating-derived bucket used to gate auto-response.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ErrReplyExists is recorded on tasks forced to skipped because the review
// already carries a reply posted outside this system.
const ErrReplyExists = "reply already exists"

// TaskAnalysis holds the generator's interpretation of the review, stored as
// a jsonb column alongside the generated reply.
type TaskAnalysis struct {
	Summary      string `json:"summary"`
	Sentiment    string `json:"sentiment"`
	Style        string `json:"style"`
	CustomerName string `json:"customer_name"`
}

// AutoReplyTask is one unit of reply work per (user, external review) pair.
// The (user_id, review_name) pair is unique: a review is tracked by at most
// one task no matter how many synchronization passes see it.
type AutoReplyTask struct {
	ID     string `gorm:"primaryKey;column:id"`
	UserID string `gorm:"column:user_id;not null;uniqueIndex:idx_tasks_user_review"`

	// External review identity
	ReviewID   string `gorm:"column:review_id;not null"`
	ReviewName string `gorm:"column:review_name;not null;uniqueIndex:idx_tasks_user_review"`

	// Review snapshot captured at detection time
	ReviewerName string    `gorm:"column:reviewer_name"`
	CustomerName string    `gorm:"column:customer_name"`
	BusinessName string    `gorm:"column:business_name"`
	LocationName string    `gorm:"column:location_name"`
	StarRating   string    `gorm:"column:star_rating"`
	RatingValue  int       `gorm:"column:rating_value"`
	Comment      string    `gorm:"column:comment"`
	Sentiment    Sentiment `gorm:"column:sentiment"`
	Tone         string    `gorm:"column:tone"`

	// Scheduling
	ScheduledFor time.Time `gorm:"column:scheduled_for;not null"`

	// Generation output
	GeneratedReply string        `gorm:"column:generated_reply"`
	Analysis       *TaskAnalysis `gorm:"column:analysis;type:jsonb;serializer:json"`

	// Reply already present on the external review (set when skipped)
	ExternalReply string `gorm:"column:external_reply"`

	// Lifecycle
	Status      TaskStatus `gorm:"column:status;type:task_status;not null"`
	Error       string     `gorm:"column:error"`
	LastTriedAt *time.Time `gorm:"column:last_tried_at"`
	SentAt      *time.Time `gorm:"column:sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the AutoReplyTask model
func (AutoReplyTask) TableName() string {
	return "autoreply_tasks"
}
