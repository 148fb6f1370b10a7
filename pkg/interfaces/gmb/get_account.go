package gmb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// GetAccount resolves the single business account reachable with the
// credential. Returns nil (no error) when the credential has no accounts.
func (c *Client) GetAccount(ctx context.Context, cred Credential) (*Account, error) {
	log := c.logger.WithField("method", "GetAccount")

	fullURL := c.config.AccountsBaseURL + "/accounts"

	data, err := c.makeRequest(ctx, cred, "GET", fullURL, nil)
	if err != nil {
		return nil, err
	}

	var accountsResp accountsResponse
	if err := json.Unmarshal(data, &accountsResp); err != nil {
		return nil, fmt.Errorf("failed to decode accounts response: %w", err)
	}

	if len(accountsResp.Accounts) == 0 {
		log.Debug("Credential has no business accounts")
		return nil, nil
	}

	account := accountsResp.Accounts[0]
	log.WithFields(logrus.Fields{
		"account":      account.Name,
		"account_name": account.AccountName,
	}).Debug("Resolved business account")

	return &account, nil
}
