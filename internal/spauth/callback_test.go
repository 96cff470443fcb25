package spauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCallbackSuccess(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=s1&code=the-code", nil)

	handleCallback(rec, req, "s1", resultCh)

	result := <-resultCh
	require.NoError(t, result.err)
	assert.Equal(t, "the-code", result.code)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "successful")
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=attacker&code=x", nil)

	handleCallback(rec, req, "expected", resultCh)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCallbackProviderError(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/auth/callback?state=s1&error=access_denied&error_description=User+declined", nil)

	handleCallback(rec, req, "s1", resultCh)

	result := <-resultCh
	require.Error(t, result.err)

	var pe *ProviderError
	require.ErrorAs(t, result.err, &pe)
	assert.Equal(t, "access_denied", pe.Code)
	assert.Equal(t, "User declined", pe.Description)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=s1", nil)

	handleCallback(rec, req, "s1", resultCh)

	result := <-resultCh
	require.Error(t, result.err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWaitForCodeRoundTrip(t *testing.T) {
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type waitResult struct {
		code string
		err  error
	}

	done := make(chan waitResult, 1)

	go func() {
		code, err := WaitForCode(ctx, redirectURI, "s1", nil)
		done <- waitResult{code: code, err: err}
	}()

	// Poll until the callback server is up, then play the provider redirect.
	target := redirectURI + "?state=s1&code=the-code"
	require.Eventually(t, func() bool {
		resp, err := http.Get(target)
		if err != nil {
			return false
		}

		resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	result := <-done
	require.NoError(t, result.err)
	assert.Equal(t, "the-code", result.code)
}

func TestWaitForCodeContextCanceled(t *testing.T) {
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForCode(ctx, redirectURI, "s1", nil)
	require.Error(t, err)
}

func TestWaitForCodeInvalidRedirectURI(t *testing.T) {
	_, err := WaitForCode(context.Background(), "http://[::1:bad", "s1", nil)
	require.Error(t, err)
}

// freePort grabs an ephemeral port and releases it for the test to reuse.
func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}
