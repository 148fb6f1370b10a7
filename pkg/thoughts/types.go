// Package thoughts turns customer reviews into reply text via an LLM.
package thoughts

import (
	"context"
)

// ReviewContext carries everything the generator needs to know about a
// review and the business it belongs to.
type ReviewContext struct {
	BusinessName string
	LocationName string
	ReviewerName string
	RatingValue  int
	ReviewText   string
	Tone         string
}

// ReplyResult is the generator's structured output: the reply itself plus
// its interpretation of the review.
type ReplyResult struct {
	Reply        string `json:"reply"`
	Sentiment    string `json:"sentiment"`
	CustomerName string `json:"customer_name"`
	Summary      string `json:"summary"`
	Style        string `json:"style"`
}

// ReviewReplyGenerator produces a reply for a review.
type ReviewReplyGenerator interface {
	GenerateReply(ctx context.Context, review ReviewContext) (*ReplyResult, error)
}
