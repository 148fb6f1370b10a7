package gmb

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Authenticator exchanges per-user refresh tokens for short-lived access
// tokens. Each refresh token gets its own oauth2 token source, which caches
// the access token until expiry and refreshes it transparently.
type Authenticator struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource // keyed by refresh token
}

// NewAuthenticator creates an Authenticator for the given config.
func NewAuthenticator(config *Config) *Authenticator {
	return &Authenticator{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		logger:     config.Logger,
		sources:    make(map[string]oauth2.TokenSource),
	}
}

// AccessToken returns a valid access token for the credential, refreshing
// it when the cached one is missing or expired.
func (a *Authenticator) AccessToken(_ context.Context, cred Credential) (string, error) {
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("credential has no refresh token")
	}

	token, err := a.source(cred.RefreshToken).Token()
	if err != nil {
		a.logger.WithError(err).Error("Token refresh rejected")
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	return token.AccessToken, nil
}

// source returns the token source for a refresh token, creating it on first
// use. Sources are built on a background context so a cancelled request
// cannot poison the cached source for later callers.
func (a *Authenticator) source(refreshToken string) oauth2.TokenSource {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ts, ok := a.sources[refreshToken]; ok {
		return ts
	}

	conf := &oauth2.Config{
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, a.httpClient)
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	a.sources[refreshToken] = ts

	return ts
}
