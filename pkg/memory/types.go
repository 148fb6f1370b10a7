// Package memory persists auto-reply tasks and user records.
package memory

import (
	"time"

	"github.com/replyhub/autoreply-go/pkg/db/models"
)

// TaskProjection is the slim view of a task the synchronizer reconciles
// against: enough to decide create / refresh / skip without loading full
// rows.
type TaskProjection struct {
	ID           string            `gorm:"column:id"`
	ReviewName   string            `gorm:"column:review_name"`
	Tone         string            `gorm:"column:tone"`
	Status       models.TaskStatus `gorm:"column:status"`
	ScheduledFor time.Time         `gorm:"column:scheduled_for"`
}

// InsertResult reports the outcome of a best-effort bulk insert. Duplicate
// rows rejected by the (user_id, review_name) uniqueness constraint are
// counted, not surfaced as errors: they indicate a race with a concurrent
// sync pass, which is benign.
type InsertResult struct {
	Inserted          int
	SkippedDuplicates int
}
