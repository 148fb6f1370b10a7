// Package pipeline implements the auto-reply cycle: detect new reviews,
// schedule delayed replies, generate reply text and dispatch it.
package pipeline

import (
	"context"
	"time"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/memory"
)

// ReviewAPI is the slice of the Business Profile client the pipeline needs.
type ReviewAPI interface {
	GetAccount(ctx context.Context, cred gmb.Credential) (*gmb.Account, error)
	GetLocations(ctx context.Context, cred gmb.Credential, accountName string) ([]gmb.Location, error)
	GetReviews(ctx context.Context, cred gmb.Credential, accountName, locationName string, since time.Time) ([]gmb.Review, error)
	PostReply(ctx context.Context, cred gmb.Credential, reviewName, text string) error
}

// TaskStore is the persistence surface for auto-reply tasks.
type TaskStore interface {
	ListProjections(ctx context.Context, userID string) ([]memory.TaskProjection, error)
	BulkInsert(ctx context.Context, tasks []models.AutoReplyTask) (memory.InsertResult, error)
	MarkSkipped(ctx context.Context, userID, reviewName, externalReply string, now time.Time) error
	RefreshTone(ctx context.Context, userID, reviewName, tone string) error
	PendingGeneration(ctx context.Context, userID string, limit int) ([]models.AutoReplyTask, error)
	DueForDispatch(ctx context.Context, userID string, limit int, now time.Time) ([]models.AutoReplyTask, error)
	MarkScheduled(ctx context.Context, taskID, reply string, analysis models.TaskAnalysis, now time.Time) error
	MarkGenerationFailed(ctx context.Context, taskID, errMsg string, now time.Time) error
	MarkSent(ctx context.Context, taskID string, now time.Time) error
	MarkDeliveryFailed(ctx context.Context, taskID, errMsg string, now time.Time) error
	RequeueGeneration(ctx context.Context, taskID string) error
	RequeueDispatch(ctx context.Context, taskID string, scheduledFor time.Time) error
	GetTask(ctx context.Context, taskID string) (*models.AutoReplyTask, error)
}

// UserStore is the persistence surface for user records.
type UserStore interface {
	ListAutoReplyEnabled(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	StampRun(ctx context.Context, userID string, at time.Time, manual bool) error
	StampReviewSync(ctx context.Context, userID string, highWater time.Time, locations []string) error
}

var (
	_ TaskStore = (*memory.TaskStore)(nil)
	_ UserStore = (*memory.UserStore)(nil)
	_ ReviewAPI = (*gmb.Client)(nil)
)
