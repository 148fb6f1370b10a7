package gmb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientOption allows for customization of the client
type ClientOption func(*Client)

// Client talks to the Business Profile account and review endpoints on
// behalf of a user credential.
type Client struct {
	config     *Config
	auth       *Authenticator
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewClient creates a new Business Profile API client
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Business Profile quota is per-minute; spread requests evenly across
	// the window instead of bursting.
	perRequest := config.RateWindow / time.Duration(config.RateLimit)

	client := &Client{
		config:     config,
		auth:       NewAuthenticator(config),
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(perRequest), 1),
		logger:     config.Logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// WithHTTPClient overrides the underlying HTTP client, used by tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
		c.auth.httpClient = hc
	}
}

// handleResponse checks for API errors in the response
func (c *Client) handleResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("business profile api error: status=%d body=%s", statusCode, string(body))
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": statusCode,
		"error_code":  errResp.Error.Code,
		"api_status":  errResp.Error.Status,
		"message":     errResp.Error.Message,
	}).Error("Business Profile API error")

	return fmt.Errorf("business profile api error: code=%d status=%s message=%s",
		errResp.Error.Code, errResp.Error.Status, errResp.Error.Message)
}

// makeRequest performs one API call and returns the response body. The body
// is fully read before the per-request timeout context is released, so
// callers without a deadline of their own can decode at leisure.
func (c *Client) makeRequest(ctx context.Context, cred Credential, method, fullURL string, body interface{}) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	accessToken, err := c.auth.AccessToken(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		c.logger.WithField("request_body", string(jsonBody)).Debug("Request payload")
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := c.handleResponse(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}
