// Package content wraps the blog content backend (a REST+JWT server) and
// reshapes its resources into the normalized types in pkg/model.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/me/reportkit/pkg/model"
)

// TokenSource supplies the bearer token for authorized calls and is told
// when a call came back 401. *session.Manager satisfies it.
type TokenSource interface {
	// GetValidToken returns a usable token or "" when none is held.
	// Absence of a token is not an error; the backend decides what an
	// unauthenticated caller may read.
	GetValidToken(ctx context.Context) string

	// Invalidate destroys the session after an observed auth failure.
	Invalidate()
}

// Client is the adapter for the content backend. Every outbound call that
// needs the session token goes through it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// NewClient creates a content client. tokens may be nil for read-only,
// unauthenticated use.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger.With("component", "content"),
	}
}

// get performs an authorized GET and returns the raw body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, query, nil)
}

// send performs an authorized JSON request. body is marshaled when non-nil.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.sendRaw(ctx, method, path, query, "application/json", nil, reader, "")
}

// sendRaw is the single choke point for content-backend HTTP. overrideToken
// replaces the session token when non-empty; it exists for the one call
// made before a session exists (the post-login profile fetch).
func (c *Client) sendRaw(ctx context.Context, method, path string, query url.Values, contentType string, extraHeaders http.Header, body io.Reader, overrideToken string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range extraHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	token := overrideToken
	fromSession := false
	if token == "" && c.tokens != nil {
		token = c.tokens.GetValidToken(ctx)
		fromSession = token != ""
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("http request", "method", method, "url", u, "authorized", token != "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetworkError(err)
	}

	c.logger.Debug("http response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode >= 400 {
		apiErr := model.ErrorFromResponse(resp.StatusCode, resp.Status, respBody)
		// A 401 on any authorized call destroys the session; callers must
		// re-authenticate rather than retry.
		if resp.StatusCode == http.StatusUnauthorized && fromSession {
			c.tokens.Invalidate()
		}
		return nil, apiErr
	}

	return respBody, nil
}
