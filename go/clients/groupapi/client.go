package groupapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RosterEntry is one member row from the roster fetch.
type RosterEntry struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// TimerUpdate is the PUT /users/{id}/timer body. Duration is PT-encoded.
type TimerUpdate struct {
	Status    string `json:"status"`
	StartTime string `json:"startTime"`
	Duration  string `json:"duration"`
}

// Client talks to the group persistence service: the roster fetch on join
// and the best-effort timer write on every phase transition.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a group API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent on every request, e.g. Authorization.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// FetchRoster retrieves a group's member list.
func (c *Client) FetchRoster(ctx context.Context, groupID int64) ([]RosterEntry, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/groups/%d", groupID), nil)
	if err != nil {
		return nil, err
	}

	var roster []RosterEntry
	if err := json.Unmarshal(body, &roster); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}
	return roster, nil
}

// PutTimer persists the client's last timer anchor. Callers treat failures
// as log-only: the local countdown, not this record, is the source of truth.
func (c *Client) PutTimer(ctx context.Context, userID int64, update TimerUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal timer update: %w", err)
	}
	_, err = c.makeRequest(ctx, http.MethodPut, fmt.Sprintf("/users/%d/timer", userID), bytes.NewReader(payload))
	return err
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return responseBody, nil
}
