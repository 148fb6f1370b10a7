package thoughts_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/replyhub/autoreply-go/pkg/thoughts"
)

var _ = Describe("ParseReplyResult", func() {
	It("parses a clean JSON completion", func() {
		result, err := thoughts.ParseReplyResult(`{"reply": "Thank you, Maria!", "sentiment": "positive", "customer_name": "Maria", "summary": "Loved the service.", "style": "warm"}`)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Reply).To(Equal("Thank you, Maria!"))
		Expect(result.Sentiment).To(Equal("positive"))
		Expect(result.CustomerName).To(Equal("Maria"))
		Expect(result.Summary).To(Equal("Loved the service."))
		Expect(result.Style).To(Equal("warm"))
	})

	It("strips markdown code fences the model adds anyway", func() {
		completion := "```json\n{\"reply\": \"We appreciate the feedback.\", \"sentiment\": \"neutral\"}\n```"

		result, err := thoughts.ParseReplyResult(completion)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Reply).To(Equal("We appreciate the feedback."))
		Expect(result.Sentiment).To(Equal("neutral"))
	})

	It("strips bare fences without a language tag", func() {
		completion := "```\n{\"reply\": \"Sorry to hear that.\", \"sentiment\": \"negative\"}\n```"

		result, err := thoughts.ParseReplyResult(completion)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Reply).To(Equal("Sorry to hear that."))
	})

	It("rejects non-JSON output", func() {
		_, err := thoughts.ParseReplyResult("Thank you for your review!")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to parse generator output"))
	})

	It("rejects an empty reply", func() {
		_, err := thoughts.ParseReplyResult(`{"reply": "   ", "sentiment": "positive"}`)
		Expect(err).To(MatchError(ContainSubstring("empty reply")))
	})

	It("truncates replies over the length cap", func() {
		long := strings.Repeat("a", thoughts.MaxReplyLength+200)
		result, err := thoughts.ParseReplyResult(`{"reply": "` + long + `", "sentiment": "positive"}`)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Reply).To(HaveLen(thoughts.MaxReplyLength))
	})

	It("blanks out an unrecognized sentiment", func() {
		result, err := thoughts.ParseReplyResult(`{"reply": "Thanks!", "sentiment": "ecstatic"}`)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Sentiment).To(BeEmpty())
	})
})
