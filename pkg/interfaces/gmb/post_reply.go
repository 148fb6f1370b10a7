package gmb

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PostReply publishes a reply on a review. reviewName is the review's
// canonical path (accounts/{a}/locations/{l}/reviews/{r}). Posting to a
// review that already has a reply overwrites it, so callers decide whether
// an existing reply means skip.
func (c *Client) PostReply(ctx context.Context, cred Credential, reviewName, text string) error {
	log := c.logger.WithFields(logrus.Fields{
		"method":      "PostReply",
		"review_name": reviewName,
	})
	log.Debug("Posting review reply")

	if text == "" {
		return fmt.Errorf("reply text must not be empty")
	}

	fullURL := fmt.Sprintf("%s/%s/reply", c.config.ReviewsBaseURL, reviewName)

	body := map[string]string{"comment": text}

	if _, err := c.makeRequest(ctx, cred, "PUT", fullURL, body); err != nil {
		log.WithError(err).Error("Failed to post review reply")
		return err
	}

	log.Debug("Successfully posted review reply")

	return nil
}

// DeleteReply removes the reply on a review, if any.
func (c *Client) DeleteReply(ctx context.Context, cred Credential, reviewName string) error {
	log := c.logger.WithFields(logrus.Fields{
		"method":      "DeleteReply",
		"review_name": reviewName,
	})

	if _, err := c.makeRequest(ctx, cred, "DELETE",
		fmt.Sprintf("%s/%s/reply", c.config.ReviewsBaseURL, reviewName), nil); err != nil {
		log.WithError(err).Error("Failed to delete review reply")
		return err
	}

	return nil
}
