// Package notify delivers push notifications through an external gateway.
// Dispatch is best-effort: a failed send never blocks or rolls back the
// status transition that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notifier sends a notification to a user's registered device.
type Notifier interface {
	Send(ctx context.Context, userID int64, title, body string, data map[string]string) error
}

// Client talks to the push gateway over HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type sendRequest struct {
	UserID int64             `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewClient creates a push gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send delivers one notification to the user's device.
func (c *Client) Send(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	jsonData, err := json.Marshal(sendRequest{UserID: userID, Title: title, Body: body, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := fmt.Sprintf("%s/v1/push/send", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return fmt.Errorf("push gateway rejected send: %s", out.Message)
	}
	return nil
}

// NopNotifier discards notifications. Used when no gateway is configured.
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	return nil
}
