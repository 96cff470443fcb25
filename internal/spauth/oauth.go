package spauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/tokenstore"
)

// Client performs the two token-endpoint grants. Both are single HTTPS
// POSTs with form-encoded bodies (handled by the oauth2 package); neither
// is retried here — a provider error or network failure propagates.
type Client struct {
	cfg    *oauth2.Config
	store  *tokenstore.Store
	logger *slog.Logger
}

// NewClient builds an OAuth client for the configured Azure AD tenant.
func NewClient(auth config.AuthConfig, store *tokenstore.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg: &oauth2.Config{
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			RedirectURL:  auth.RedirectURI,
			Scopes:       auth.Scopes,
			Endpoint:     microsoft.AzureADEndpoint(auth.TenantID),
		},
		store:  store,
		logger: logger,
	}
}

// AuthCodeURL returns the authorization URL the user's browser must visit.
func (c *Client) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode performs the authorization-code grant, persists the
// resulting token set, and returns it.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*tokenstore.TokenSet, error) {
	c.logger.Info("exchanging authorization code for tokens")

	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, providerError("code exchange", err)
	}

	ts := tokenSetFrom(tok, "")
	c.persist(ts)

	c.logger.Info("authorization code exchange successful",
		slog.Time("expires_at", ts.ExpiresAt),
	)

	return ts, nil
}

// Refresh performs the refresh-token grant. Providers may rotate refresh
// tokens or keep them; when the response omits a new refresh token the
// previous one is retained. The result is persisted and returned.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*tokenstore.TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("spauth: no refresh token available")
	}

	c.logger.Info("refreshing access token")

	src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, providerError("token refresh", err)
	}

	ts := tokenSetFrom(tok, refreshToken)
	c.persist(ts)

	c.logger.Info("token refresh successful",
		slog.Time("expires_at", ts.ExpiresAt),
	)

	return ts, nil
}

// persist saves the token set. Disk failures are logged, not propagated —
// the in-memory token set is still valid for this process.
func (c *Client) persist(ts *tokenstore.TokenSet) {
	if err := c.store.Save(ts); err != nil {
		c.logger.Warn("failed to persist tokens",
			slog.String("error", err.Error()),
		)
	}
}

// tokenSetFrom maps an oauth2 token to our TokenSet. previousRefresh is
// substituted when the provider response carried no refresh token.
func tokenSetFrom(tok *oauth2.Token, previousRefresh string) *tokenstore.TokenSet {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return &tokenstore.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    tok.Expiry,
		TokenType:    tok.Type(),
	}
}

// providerError converts an oauth2 retrieval failure into a ProviderError
// when the token endpoint answered with an error envelope, and wraps plain
// transport failures otherwise.
func providerError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := re.ErrorCode
		if code == "" {
			code = re.Response.Status
		}

		return &ProviderError{Code: code, Description: re.ErrorDescription}
	}

	return fmt.Errorf("spauth: %s: %w", op, err)
}
