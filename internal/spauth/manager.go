package spauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spdrive/spdrive/internal/tokenstore"
)

// expiryMargin is the safety window before the recorded expiry at which a
// token is already treated as expired. Five minutes covers clock skew and
// long-running requests started just before the boundary.
const expiryMargin = 5 * time.Minute

// refreshKey is the singleflight key — there is one token set per process,
// so all refreshes collapse onto one in-flight call.
const refreshKey = "refresh"

// Refresher is the slice of Client the manager needs. Narrowed to an
// interface so tests can count refresh calls.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokenstore.TokenSet, error)
}

// Manager owns the process-wide token set and decides when it is usable.
// Disk is the durability backing (via tokenstore.Store); the manager holds
// the in-memory instance and serializes refreshes so concurrent callers
// never issue duplicate refresh grants.
type Manager struct {
	store  *tokenstore.Store
	oauth  Refresher
	logger *slog.Logger
	clock  func() time.Time
	group  singleflight.Group
	mu     sync.Mutex
	tokens *tokenstore.TokenSet
}

// NewManager creates a Manager. The token set is loaded lazily on first use.
func NewManager(store *tokenstore.Store, oauth Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:  store,
		oauth:  oauth,
		logger: logger,
		clock:  time.Now,
	}
}

// AccessToken returns a currently valid bearer token, refreshing once if
// the cached token is inside the expiry margin. It returns ErrAuthRequired
// when no token is held or the refresh fails — the provider error is
// logged, not surfaced, because the caller's remediation is the same:
// re-run the authorization flow.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	ts := m.current()
	if ts == nil || ts.AccessToken == "" {
		return "", ErrAuthRequired
	}

	if !m.expired(ts) {
		return ts.AccessToken, nil
	}

	v, err, shared := m.group.Do(refreshKey, func() (any, error) {
		return m.refreshLocked(ctx)
	})
	if err != nil {
		m.logger.Warn("token refresh failed",
			slog.String("error", err.Error()),
		)

		return "", ErrAuthRequired
	}

	if shared {
		m.logger.Debug("token refresh shared with concurrent caller")
	}

	fresh, ok := v.(*tokenstore.TokenSet)
	if !ok || fresh.AccessToken == "" {
		return "", ErrAuthRequired
	}

	return fresh.AccessToken, nil
}

// refreshLocked runs inside the singleflight group. It re-reads the current
// set first: a caller that queued behind an in-progress refresh must not
// trigger a second one against an already-fresh token.
func (m *Manager) refreshLocked(ctx context.Context) (*tokenstore.TokenSet, error) {
	ts := m.current()
	if ts == nil || ts.AccessToken == "" {
		return nil, ErrAuthRequired
	}

	if !m.expired(ts) {
		return ts, nil
	}

	m.logger.Info("access token expired, refreshing",
		slog.Time("expires_at", ts.ExpiresAt),
	)

	fresh, err := m.oauth.Refresh(ctx, ts.RefreshToken)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tokens = fresh
	m.mu.Unlock()

	return fresh, nil
}

// IsAuthenticated reports whether a token set with an access token exists
// and is outside the expiry margin. It lazily loads from disk but never
// triggers a refresh or any other network call.
func (m *Manager) IsAuthenticated() bool {
	ts := m.current()

	return ts != nil && ts.AccessToken != "" && !m.expired(ts)
}

// ForceReauthenticate always fails with ErrAuthRequired: there is no silent
// re-authentication path. The caller must restart the authorization-code
// flow out-of-band.
func (m *Manager) ForceReauthenticate() error {
	return ErrAuthRequired
}

// SetTokens installs a freshly exchanged token set into memory. Used by the
// login flow after ExchangeCode (which has already persisted it).
func (m *Manager) SetTokens(ts *tokenstore.TokenSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = ts
}

// Reload drops the in-memory token set so the next access re-reads the
// file. Called when the token-file watcher reports an external write.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil
}

// Logout clears both the in-memory set and the on-disk file.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.tokens = nil
	m.mu.Unlock()

	return m.store.Clear()
}

// current returns the in-memory token set, loading from disk on first use.
func (m *Manager) current() *tokenstore.TokenSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		m.tokens = m.store.Load()
	}

	return m.tokens
}

// expired reports whether the token is inside the expiry safety margin.
// A token with no recorded expiry is treated as expired.
func (m *Manager) expired(ts *tokenstore.TokenSet) bool {
	if ts.ExpiresAt.IsZero() {
		return true
	}

	return m.clock().After(ts.ExpiresAt.Add(-expiryMargin))
}
