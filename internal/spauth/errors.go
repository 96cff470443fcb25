// Package spauth manages the OAuth2 token lifecycle for SharePoint access:
// code and refresh grants against the Azure AD token endpoint, the validity
// decision with its expiry safety margin, single-flight refresh, and the
// localhost callback server for the authorization-code flow.
package spauth

import (
	"errors"
	"fmt"
)

// ErrAuthRequired signals that no valid token is obtainable without user
// interaction. Callers surface it as an instruction to run `spdrive login`;
// it is never retried automatically.
var ErrAuthRequired = errors.New("spauth: authentication required")

// ProviderError is a token-endpoint rejection of a code or refresh grant.
// It is not retried; the user must restart the authorization flow.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("spauth: provider error %s: %s", e.Code, e.Description)
	}

	return fmt.Sprintf("spauth: provider error %s", e.Code)
}
