package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// maxRedirects caps download redirect chains. Graph hands out one redirect
// to the pre-authenticated CDN URL; anything past a handful of hops is a
// loop.
const maxRedirects = 5

// DownloadContent fetches the bytes behind a download URL, following 301
// and 302 redirects manually. The bearer header is attached only on
// requests targeting the API's own host — pre-authenticated CDN URLs carry
// their token in the URL, and forwarding ours would leak it to a third
// party.
func (c *Client) DownloadContent(ctx context.Context, rawURL string) ([]byte, error) {
	// Redirects are handled here, not by the transport, because the auth
	// header decision has to be re-made per hop.
	client := &http.Client{
		Timeout: c.httpClient.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	target := rawURL

	for hop := 0; hop <= maxRedirects; hop++ {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("graph: invalid download URL: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("graph: creating download request: %w", err)
		}

		req.Header.Set("User-Agent", userAgent)

		if u.Host == c.apiHost {
			token, tokenErr := c.tokens.AccessToken(ctx)
			if tokenErr != nil {
				return nil, tokenErr
			}

			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graph: download request failed: %w", err)
		}

		if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
			location := resp.Header.Get("Location")
			resp.Body.Close()

			if location == "" {
				return nil, fmt.Errorf("graph: redirect response without Location header")
			}

			next, locErr := u.Parse(location)
			if locErr != nil {
				return nil, fmt.Errorf("graph: invalid redirect location %q: %w", location, locErr)
			}

			c.logger.Debug("following download redirect",
				slog.Int("hop", hop+1),
				slog.Int("status", resp.StatusCode),
			)

			target = next.String()

			continue
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
			resp.Body.Close()

			return nil, newGraphError(resp, body)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			return nil, fmt.Errorf("graph: reading download content: %w", readErr)
		}

		return data, nil
	}

	return nil, fmt.Errorf("graph: download exceeded %d redirects: %w", maxRedirects, ErrTooManyRedirects)
}
