// Package api is a small client for the marketplace REST endpoints the
// notification session depends on: stored preferences and tender summaries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// Client talks to the marketplace API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client. A non-empty token is sent as a bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPreferences returns the stored preferences of scope. Fields the server
// omits keep their default value.
func (c *Client) GetPreferences(ctx context.Context, scope notifications.Scope) (notifications.Preferences, error) {
	if err := scope.Validate(); err != nil {
		return notifications.Preferences{}, fmt.Errorf("api.GetPreferences: %w", err)
	}

	params := url.Values{}
	for k, v := range scope.Payload() {
		params.Set(k, fmt.Sprint(v))
	}

	prefs := notifications.DefaultPreferences()
	if err := c.get(ctx, "/api/notifications/preferences?"+params.Encode(), &prefs); err != nil {
		return notifications.Preferences{}, fmt.Errorf("api.GetPreferences: %w", err)
	}
	prefs = prefs.Clone()
	if err := prefs.Validate(); err != nil {
		return notifications.Preferences{}, fmt.Errorf("api.GetPreferences: %w", err)
	}
	return prefs, nil
}

// GetTender returns the summary of tender id.
func (c *Client) GetTender(ctx context.Context, id int64) (notifications.TenderSummary, error) {
	var t notifications.TenderSummary
	if err := c.get(ctx, "/api/tenders/"+strconv.FormatInt(id, 10), &t); err != nil {
		return notifications.TenderSummary{}, fmt.Errorf("api.GetTender: %w", err)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
			if apiErr.Message != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
