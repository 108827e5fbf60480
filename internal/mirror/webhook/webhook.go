// Package webhook mirrors collections to a user-configured HTTP endpoint
// (typically a Google Apps Script web app). The outbound contract is a POST
// with an action discriminator, a collection tag and the full snapshot; the
// pull path is a GET query for a named collection.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type syncPayload struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   any    `json:"data"`
}

func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("missing webhook endpoint")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Sync posts the collection snapshot to the endpoint.
func (c *Client) Sync(ctx context.Context, collection string, data any) error {
	body, err := json.Marshal(syncPayload{Action: "sync", Type: collection, Data: data})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post snapshot: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}

// Fetch pulls a named collection from the endpoint.
func (c *Client) Fetch(ctx context.Context, collection string) (json.RawMessage, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("action", "load")
	q.Set("type", collection)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("endpoint returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}
