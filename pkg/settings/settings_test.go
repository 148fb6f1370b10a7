package settings_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/replyhub/autoreply-go/pkg/db/models"
	"github.com/replyhub/autoreply-go/pkg/settings"
)

func boolPtr(b bool) *bool { return &b }

var _ = Describe("Normalize", func() {
	It("fills every unset field with its default", func() {
		policy := settings.Normalize(settings.Overrides{})

		Expect(policy.Enabled).To(BeFalse())
		Expect(policy.DelayMinutes).To(Equal(settings.DefaultDelayMinutes))
		Expect(policy.Tone).To(Equal(settings.DefaultTone))
		Expect(policy.RespondToPositive).To(BeTrue())
		Expect(policy.RespondToNeutral).To(BeTrue())
		Expect(policy.RespondToNegative).To(BeTrue())
	})

	It("keeps explicit values, including explicit false gates", func() {
		enabled := true
		delay := 5
		tone := "formal"

		policy := settings.Normalize(settings.Overrides{
			Enabled:           &enabled,
			DelayMinutes:      &delay,
			Tone:              &tone,
			RespondToNegative: boolPtr(false),
		})

		Expect(policy.Enabled).To(BeTrue())
		Expect(policy.DelayMinutes).To(Equal(5))
		Expect(policy.Tone).To(Equal("formal"))
		Expect(policy.RespondToPositive).To(BeTrue())
		Expect(policy.RespondToNegative).To(BeFalse())
	})

	It("clamps a negative delay to the default", func() {
		delay := -10
		policy := settings.Normalize(settings.Overrides{DelayMinutes: &delay})
		Expect(policy.DelayMinutes).To(Equal(settings.DefaultDelayMinutes))
	})

	It("is idempotent over its own output", func() {
		enabled := true
		delay := 90
		tone := "playful"
		first := settings.Normalize(settings.Overrides{
			Enabled:           &enabled,
			DelayMinutes:      &delay,
			Tone:              &tone,
			RespondToPositive: boolPtr(false),
			RespondToNeutral:  boolPtr(true),
		})

		second := settings.Normalize(first.Raw())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("FromStored", func() {
	It("treats zero delay and empty tone as unset", func() {
		raw := settings.FromStored(models.AutoReplySettings{
			Enabled:      true,
			DelayMinutes: 0,
			Tone:         "",
		})

		Expect(raw.DelayMinutes).To(BeNil())
		Expect(raw.Tone).To(BeNil())

		policy := settings.Normalize(raw)
		Expect(policy.Enabled).To(BeTrue())
		Expect(policy.DelayMinutes).To(Equal(settings.DefaultDelayMinutes))
		Expect(policy.Tone).To(Equal(settings.DefaultTone))
	})

	It("carries stored gate pointers through untouched", func() {
		raw := settings.FromStored(models.AutoReplySettings{
			RespondToNeutral: boolPtr(false),
		})

		policy := settings.Normalize(raw)
		Expect(policy.RespondToNeutral).To(BeFalse())
		Expect(policy.RespondToPositive).To(BeTrue())
	})
})

var _ = Describe("Policy gating", func() {
	It("maps each sentiment to its own gate", func() {
		policy := settings.Normalize(settings.Overrides{
			RespondToPositive: boolPtr(true),
			RespondToNeutral:  boolPtr(false),
			RespondToNegative: boolPtr(true),
		})

		Expect(policy.Gate(models.SentimentPositive)).To(BeTrue())
		Expect(policy.Gate(models.SentimentNeutral)).To(BeFalse())
		Expect(policy.Gate(models.SentimentNegative)).To(BeTrue())
	})

	It("refuses unknown sentiments", func() {
		policy := settings.Normalize(settings.Overrides{})
		Expect(policy.Gate(models.Sentiment("confused"))).To(BeFalse())
	})
})
