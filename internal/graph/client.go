package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// userAgent identifies this client to the Graph API.
const userAgent = "spdrive/0.1"

// errorSnippetLen bounds how much of an unparsable error body is surfaced.
const errorSnippetLen = 200

// TokenProvider supplies a currently valid bearer token. Defined at the
// consumer per Go convention "accept interfaces, return structs"; the
// spauth lifecycle manager provides the real implementation and returns
// spauth.ErrAuthRequired when no token is obtainable.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Request describes one API call. Endpoint is joined to the client's base
// URL unless it is already absolute. Query values that are empty strings
// are omitted, never encoded as empty parameters.
type Request struct {
	Endpoint string
	Method   string // defaults to GET
	Query    map[string]string
	Headers  map[string]string
	Body     any // marshaled to JSON when non-nil
}

// Payload is a normalized 2xx response body. At most one of Raw and
// RawText is set: Raw holds a JSON body, RawText preserves a non-JSON body
// verbatim, and neither set means the response was empty (204 and friends).
type Payload struct {
	Raw     []byte
	RawText string
}

// Empty reports whether the response carried no body.
func (p *Payload) Empty() bool {
	return len(p.Raw) == 0 && p.RawText == ""
}

// Get extracts a field from the JSON body by gjson path.
func (p *Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.Raw, path)
}

// Decode unmarshals the JSON body into v.
func (p *Payload) Decode(v any) error {
	if len(p.Raw) == 0 {
		return fmt.Errorf("graph: decoding empty response body")
	}

	if err := json.Unmarshal(p.Raw, v); err != nil {
		return fmt.Errorf("graph: decoding response: %w", err)
	}

	return nil
}

// Client executes authenticated requests against the Graph API.
// It does not retry: callers that want to retry idempotent GETs wrap it.
type Client struct {
	baseURL    string
	apiHost    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     *slog.Logger
}

// NewClient creates a Graph API client. baseURL is typically
// "https://graph.microsoft.com/v1.0".
func NewClient(baseURL string, httpClient *http.Client, tokens TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	apiHost := ""
	if u, err := url.Parse(baseURL); err == nil {
		apiHost = u.Host
	}

	return &Client{
		baseURL:    baseURL,
		apiHost:    apiHost,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// Request executes an API call and normalizes the response:
//   - 2xx with an empty body yields an empty Payload (operation succeeded)
//   - 2xx with a non-JSON body yields Payload.RawText
//   - non-2xx yields a *GraphError carrying the best available message
//
// The token is obtained before any network I/O; when the token provider
// reports authentication is required, no request is sent.
func (c *Client) Request(ctx context.Context, req Request) (*Payload, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	target, err := c.buildURL(req.Endpoint, req.Query)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader

	if req.Body != nil {
		data, marshalErr := json.Marshal(req.Body)
		if marshalErr != nil {
			return nil, fmt.Errorf("graph: marshaling request body: %w", marshalErr)
		}

		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", userAgent)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("graph: %s %s: %w", method, req.Endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := c.normalize(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("endpoint", req.Endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return payload, nil
}

// buildURL joins the endpoint to the base URL (absolute endpoints pass
// through, used for @odata.nextLink pages) and merges query parameters,
// omitting empty values.
func (c *Client) buildURL(endpoint string, query map[string]string) (string, error) {
	raw := endpoint
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = c.baseURL + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("graph: invalid endpoint %q: %w", endpoint, err)
	}

	if len(query) > 0 {
		q := u.Query()

		for k, v := range query {
			if v == "" {
				continue
			}

			q.Set(k, v)
		}

		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// normalize reads the response body and applies the success/error mapping.
func (c *Client) normalize(resp *http.Response) (*Payload, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return &Payload{}, nil
		}

		if !gjson.ValidBytes(trimmed) {
			// Some endpoints return plain text on 2xx; tolerate it.
			return &Payload{RawText: string(data)}, nil
		}

		return &Payload{Raw: trimmed}, nil
	}

	return nil, newGraphError(resp, data)
}

// newGraphError builds a GraphError from an error response, extracting the
// message from the structured error envelope when one is present.
func newGraphError(resp *http.Response, body []byte) *GraphError {
	return &GraphError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Message:    errorMessage(resp.StatusCode, body),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// errorMessage extracts the best available message from an error body:
// error.message, then error.code, then the raw status; unparsable bodies
// surface a bounded snippet.
func errorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) == 0 {
		return fmt.Sprintf("HTTP %d: empty response", status)
	}

	if gjson.ValidBytes(trimmed) {
		if msg := gjson.GetBytes(trimmed, "error.message"); msg.Exists() && msg.String() != "" {
			return msg.String()
		}

		if code := gjson.GetBytes(trimmed, "error.code"); code.Exists() && code.String() != "" {
			return code.String()
		}

		return fmt.Sprintf("HTTP %d", status)
	}

	snippet := string(trimmed)
	if len(snippet) > errorSnippetLen {
		snippet = snippet[:errorSnippetLen]
	}

	return fmt.Sprintf("HTTP %d: %s", status, snippet)
}
