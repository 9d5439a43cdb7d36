// Package notify delivers build completion messages to a Lark group chat
// through an incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client posts text messages to a Lark incoming webhook.
type Client struct {
	hc     *http.Client
	logger *slog.Logger

	// ipEndpoints are probed in order for the host's public address.
	ipEndpoints []string
}

// NewClient creates a webhook client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		hc:     &http.Client{Timeout: timeout},
		logger: logger,
		ipEndpoints: []string{
			"https://api.ipify.org",
			"https://ifconfig.me/ip",
			"https://icanhazip.com",
		},
	}
}

type larkPayload struct {
	MsgType string      `json:"msg_type"`
	Content larkContent `json:"content"`
}

type larkContent struct {
	Text string `json:"text"`
}

type larkResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendText posts a plain text message to the webhook URL.
func (c *Client) SendText(ctx context.Context, webhookURL, text string) error {
	if webhookURL == "" {
		return fmt.Errorf("no webhook url configured")
	}

	body, err := json.Marshal(larkPayload{
		MsgType: "text",
		Content: larkContent{Text: text},
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var lr larkResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		// Some webhook variants return an empty body on success.
		return nil
	}
	if lr.Code != 0 {
		return fmt.Errorf("webhook rejected message: code=%d msg=%s", lr.Code, lr.Msg)
	}
	return nil
}

// PublicIP returns the host's public address, or "unknown" when every
// endpoint fails. Lookup failures are not fatal to notification delivery.
func (c *Client) PublicIP(ctx context.Context) string {
	for _, endpoint := range c.ipEndpoints {
		ip, err := c.fetchIP(ctx, endpoint)
		if err != nil {
			c.logger.Debug("public ip lookup failed", "endpoint", endpoint, "error", err)
			continue
		}
		return ip
	}
	return "unknown"
}

func (c *Client) fetchIP(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(raw))
	if ip == "" {
		return "", fmt.Errorf("empty response")
	}
	return ip, nil
}
