package spauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the handler.
type callbackResult struct {
	code string
	err  error
}

// NewState returns a random state parameter for the authorization request.
func NewState() string {
	return uuid.NewString()
}

// WaitForCode binds an HTTP server on the redirect URI's host and port,
// waits for the provider to redirect the user's browser back, validates the
// state parameter, and returns the authorization code. The server shuts
// down before returning.
//
// Unlike ephemeral-port schemes, the listen address comes from the
// registered redirect URI — Azure AD requires an exact match, and the same
// URI is shared with the companion auth server deployment.
func WaitForCode(ctx context.Context, redirectURI, state string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ru, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("spauth: invalid redirect URI %q: %w", redirectURI, err)
	}

	callbackPath := ru.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", ru.Host)
	if err != nil {
		return "", fmt.Errorf("spauth: binding callback listener on %s: %w", ru.Host, err)
	}

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("spauth: callback server error: %w", serveErr)}
		}
	}()

	logger.Info("callback server listening",
		slog.String("addr", ru.Host),
		slog.String("path", callbackPath),
	)

	defer shutdownCallbackServer(srv, logger)

	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("spauth: waiting for callback: %w", ctx.Err())
	}
}

// handleCallback validates the state, extracts the code or the provider's
// error parameters, and sends the result.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	// Validate state to prevent CSRF.
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("spauth: state mismatch (possible CSRF)")}

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: &ProviderError{Code: errParam, Description: desc}}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("spauth: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackResult{code: code}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}
