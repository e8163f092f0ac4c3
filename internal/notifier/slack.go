package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSlackAPIURL is the Slack Web API base.
const DefaultSlackAPIURL = "https://slack.com/api"

// SlackClient calls the Slack Web API with a bot token.
type SlackClient struct {
	Token  string
	APIURL string
	Client *http.Client
}

// NewSlackClient creates a client with optional proxy support.
func NewSlackClient(token, apiURL, proxyURL string) *SlackClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if apiURL == "" {
		apiURL = DefaultSlackAPIURL
	}
	return &SlackClient{
		Token:  token,
		APIURL: strings.TrimRight(apiURL, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// PublishHome replaces the home tab of userID with view.
func (s *SlackClient) PublishHome(ctx context.Context, userID string, view View) error {
	return s.call(ctx, "views.publish", map[string]any{
		"user_id": userID,
		"view":    view,
	})
}

// OpenView opens a modal in response to an interaction trigger.
func (s *SlackClient) OpenView(ctx context.Context, triggerID string, view View) error {
	return s.call(ctx, "views.open", map[string]any{
		"trigger_id": triggerID,
		"view":       view,
	})
}

// PostMessage sends text, and optional blocks, to a channel or user.
func (s *SlackClient) PostMessage(ctx context.Context, channel, text string, blocks []Block) error {
	payload := map[string]any{
		"channel": channel,
		"text":    text,
	}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}
	return s.call(ctx, "chat.postMessage", payload)
}

func (s *SlackClient) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API error: %s status %d, body: %s", method, resp.StatusCode, string(respBody))
	}
	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !result.OK {
		return fmt.Errorf("slack API error: %s: %s", method, result.Error)
	}
	return nil
}
