package thoughts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	langchainprompts "github.com/tmc/langchaingo/prompts"
)

// MaxReplyLength bounds the generated reply; Business Profile rejects
// replies above 4096 characters.
const MaxReplyLength = 4000

const defaultTemperature = 0.7

type DefaultReviewReplyGenerator struct {
	llm         llms.Model
	temperature float64
}

// NewReviewReplyGenerator creates the default LLM-backed generator.
func NewReviewReplyGenerator(llm llms.Model) ReviewReplyGenerator {
	return &DefaultReviewReplyGenerator{
		llm:         llm,
		temperature: defaultTemperature,
	}
}

// GenerateReply creates a reply based on the review and the requested tone.
func (g *DefaultReviewReplyGenerator) GenerateReply(ctx context.Context, review ReviewContext) (*ReplyResult, error) {
	replyPrompt := langchainprompts.NewPromptTemplate(
		`You write replies to customer reviews on behalf of a business owner.

Business: {{.businessName}}
Location: {{.locationName}}
Reviewer: {{.reviewerName}}
Star rating: {{.rating}} out of 5
Review text: {{.reviewText}}

Requirements:
1. Write the reply in a {{.tone}} tone
2. Keep the reply under {{.maxLength}} characters
3. Address the reviewer by name when one is available, otherwise use a neutral greeting
4. Thank positive reviewers; acknowledge and offer to make things right for negative ones
5. Never invent promotions, refunds or facts about the business

Respond with ONLY a JSON object in this exact shape, no markdown fences:
{"reply": "...", "sentiment": "positive|neutral|negative", "customer_name": "...", "summary": "one sentence summary of the review", "style": "one word describing the reply style"}`,
		[]string{"businessName", "locationName", "reviewerName", "rating", "reviewText", "tone", "maxLength"},
	)

	formattedPrompt, err := replyPrompt.Format(map[string]any{
		"businessName": review.BusinessName,
		"locationName": review.LocationName,
		"reviewerName": review.ReviewerName,
		"rating":       review.RatingValue,
		"reviewText":   review.ReviewText,
		"tone":         review.Tone,
		"maxLength":    MaxReplyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("error formatting reply prompt: %w", err)
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, g.llm, formattedPrompt,
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("error generating reply: %w", err)
	}

	result, err := ParseReplyResult(completion)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ParseReplyResult decodes the model's JSON output. Models occasionally wrap
// JSON in code fences despite instructions, so fences are stripped first.
func ParseReplyResult(completion string) (*ReplyResult, error) {
	cleaned := strings.TrimSpace(completion)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result ReplyResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse generator output: %w", err)
	}

	result.Reply = strings.TrimSpace(result.Reply)
	if result.Reply == "" {
		return nil, fmt.Errorf("generator returned an empty reply")
	}
	if len(result.Reply) > MaxReplyLength {
		result.Reply = result.Reply[:MaxReplyLength]
	}

	switch result.Sentiment {
	case "positive", "neutral", "negative":
	default:
		result.Sentiment = ""
	}

	return &result, nil
}
