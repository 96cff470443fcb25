package graph

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// defaultUploadContentType is used when the caller does not specify one.
const defaultUploadContentType = "application/octet-stream"

// Upload sends raw bytes with a PUT to the given endpoint. The service
// distinguishes create from overwrite by whether the target path already
// exists; this method carries no conflict semantics of its own.
//
// ContentLength is set explicitly so the transport never falls back to
// chunked encoding, which some SharePoint frontends reject on item uploads.
func (c *Client) Upload(ctx context.Context, endpoint string, content []byte, contentType string) (*Payload, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	target, err := c.buildURL(endpoint, nil)
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = defaultUploadContentType
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("graph: creating upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = int64(len(content))

	c.logger.Debug("uploading content",
		slog.String("endpoint", endpoint),
		slog.String("content_type", contentType),
		slog.Int("size", len(content)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.normalize(resp)
}
