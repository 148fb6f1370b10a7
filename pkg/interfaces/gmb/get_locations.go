package gmb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
)

// GetLocations lists all locations under an account, following pagination
// until the listing is exhausted.
func (c *Client) GetLocations(ctx context.Context, cred Credential, accountName string) ([]Location, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":  "GetLocations",
		"account": accountName,
	})

	var locations []Location
	pageToken := ""

	for {
		params := url.Values{
			"readMask": {"name,title"},
			"pageSize": {strconv.Itoa(c.config.PageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		fullURL := fmt.Sprintf("%s/%s/locations?%s",
			c.config.AccountsBaseURL, accountName, params.Encode())

		data, err := c.makeRequest(ctx, cred, "GET", fullURL, nil)
		if err != nil {
			return nil, err
		}

		var locationsResp locationsResponse
		if err := json.Unmarshal(data, &locationsResp); err != nil {
			return nil, fmt.Errorf("failed to decode locations response: %w", err)
		}

		locations = append(locations, locationsResp.Locations...)

		if locationsResp.NextPageToken == "" {
			break
		}
		pageToken = locationsResp.NextPageToken
	}

	log.WithField("location_count", len(locations)).Debug("Resolved locations")

	return locations, nil
}
