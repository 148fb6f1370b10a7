package pipeline_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/notify"
	"github.com/replyhub/autoreply-go/pkg/pipeline"
)

var _ = Describe("DispatchStage", func() {
	var (
		ctx      context.Context
		store    *fakeTaskStore
		api      *fakeReviewAPI
		notifier *recordingNotifier
		stage    *pipeline.DispatchStage
		user     models.User
		cred     gmb.Credential
		now      time.Time
	)

	scheduledTask := func(id string, due time.Time, reply string) models.AutoReplyTask {
		return models.AutoReplyTask{
			ID:             id,
			UserID:         "user-1",
			ReviewName:     "accounts/1/locations/1/reviews/" + id,
			Status:         models.StatusScheduled,
			ScheduledFor:   due,
			GeneratedReply: reply,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeTaskStore()
		api = newFakeReviewAPI()
		notifier = &recordingNotifier{}
		stage = pipeline.NewDispatchStage(store, api, notifier, testLogger(), 5)
		user = models.User{ID: "user-1"}
		cred = gmb.Credential{RefreshToken: "token"}
		now = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	})

	It("posts due replies and marks them sent", func() {
		_, err := store.BulkInsert(ctx, []models.AutoReplyTask{
			scheduledTask("a", now.Add(-time.Minute), "Thanks, Alex!"),
		})
		Expect(err).NotTo(HaveOccurred())

		stats, err := stage.Run(ctx, user, cred, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Sent).To(Equal(1))
		Expect(api.posted).To(HaveLen(1))
		Expect(api.posted[0].ReviewName).To(Equal("accounts/1/locations/1/reviews/a"))
		Expect(api.posted[0].Text).To(Equal("Thanks, Alex!"))

		task := store.get("a")
		Expect(task.Status).To(Equal(models.StatusSent))
		Expect(task.SentAt).NotTo(BeNil())
		Expect(notifier.eventNames()).To(ContainElement(notify.EventTaskSent))
	})

	It("leaves tasks untouched before their schedule time", func() {
		_, err := store.BulkInsert(ctx, []models.AutoReplyTask{
			scheduledTask("future", now.Add(10*time.Minute), "Not yet"),
		})
		Expect(err).NotTo(HaveOccurred())

		stats, err := stage.Run(ctx, user, cred, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Sent).To(BeZero())
		Expect(api.posted).To(BeEmpty())
		Expect(store.get("future").Status).To(Equal(models.StatusScheduled))
	})

	It("fails a scheduled task that lost its reply text", func() {
		_, err := store.BulkInsert(ctx, []models.AutoReplyTask{
			scheduledTask("broken", now.Add(-time.Minute), ""),
		})
		Expect(err).NotTo(HaveOccurred())

		stats, err := stage.Run(ctx, user, cred, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Failed).To(Equal(1))
		Expect(api.posted).To(BeEmpty())

		task := store.get("broken")
		Expect(task.Status).To(Equal(models.StatusDeliveryFailed))
		Expect(task.Error).To(Equal("generated reply missing"))
	})

	It("parks the task in delivery_failed when the provider rejects the post", func() {
		_, err := store.BulkInsert(ctx, []models.AutoReplyTask{
			scheduledTask("a", now.Add(-time.Minute), "Thanks!"),
		})
		Expect(err).NotTo(HaveOccurred())

		api.postErr = errors.New("googleapi: 403 forbidden")

		stats, err := stage.Run(ctx, user, cred, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Failed).To(Equal(1))

		task := store.get("a")
		Expect(task.Status).To(Equal(models.StatusDeliveryFailed))
		Expect(task.Error).To(Equal("googleapi: 403 forbidden"))
		Expect(task.LastTriedAt).NotTo(BeNil())
		Expect(notifier.eventNames()).To(ContainElement(notify.EventTaskFailed))
	})

	It("honors the per-cycle dispatch limit, earliest due first", func() {
		_, err := store.BulkInsert(ctx, []models.AutoReplyTask{
			scheduledTask("late", now.Add(-time.Minute), "r1"),
			scheduledTask("early", now.Add(-time.Hour), "r2"),
			scheduledTask("mid", now.Add(-30*time.Minute), "r3"),
		})
		Expect(err).NotTo(HaveOccurred())

		stage = pipeline.NewDispatchStage(store, api, notifier, testLogger(), 2)

		stats, err := stage.Run(ctx, user, cred, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Sent).To(Equal(2))
		Expect(store.get("early").Status).To(Equal(models.StatusSent))
		Expect(store.get("mid").Status).To(Equal(models.StatusSent))
		Expect(store.get("late").Status).To(Equal(models.StatusScheduled))
	})
})
