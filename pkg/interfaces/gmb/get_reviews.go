package gmb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// GetReviews fetches reviews for a location, newest first. When since is
// non-zero, pagination stops as soon as a page's oldest item predates it and
// older reviews are filtered out; the caller is expected to pass a bound
// with its own overlap window, so seeing a review twice is fine.
//
// Review listing shares the 300 requests/minute quota with the rest of the
// API; each page fetch waits on the client's rate limiter.
func (c *Client) GetReviews(ctx context.Context, cred Credential, accountName, locationName string, since time.Time) ([]Review, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":   "GetReviews",
		"account":  accountName,
		"location": locationName,
		"since":    since,
	})

	var reviews []Review
	pageToken := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		params := url.Values{
			"pageSize": {strconv.Itoa(c.config.PageSize)},
			"orderBy":  {"updateTime desc"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		fullURL := fmt.Sprintf("%s/%s/%s/reviews?%s",
			c.config.ReviewsBaseURL, accountName, locationName, params.Encode())

		data, err := c.makeRequest(ctx, cred, "GET", fullURL, nil)
		if err != nil {
			return nil, err
		}

		var reviewsResp reviewsResponse
		if err := json.Unmarshal(data, &reviewsResp); err != nil {
			return nil, fmt.Errorf("failed to decode reviews response: %w", err)
		}

		pageExhausted := false
		for _, review := range reviewsResp.Reviews {
			if !since.IsZero() && review.LatestTime().Before(since) {
				pageExhausted = true
				continue
			}
			reviews = append(reviews, review)
		}

		if pageExhausted || reviewsResp.NextPageToken == "" {
			break
		}
		pageToken = reviewsResp.NextPageToken
	}

	log.WithField("review_count", len(reviews)).Debug("Fetched reviews")

	return reviews, nil
}
