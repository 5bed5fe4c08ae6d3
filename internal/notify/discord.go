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

// Embed sidebar colors per event kind.
const (
	colorSignal   = 0x2ecc71 // green
	colorBreaker  = 0xe74c3c // red
	colorPosition = 0x3498db // blue
	colorDefault  = 0x95a5a6 // grey
)

// DiscordSender delivers notifications to a Discord channel via webhook,
// rendering each event as an embed colored by kind.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification to the webhook as a single embed.
func (d *DiscordSender) Send(ctx context.Context, event, title, message string) error {
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": message,
				"color":       embedColor(event),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

// embedColor maps an event kind to its embed sidebar color.
func embedColor(event string) int {
	switch event {
	case EventSignal:
		return colorSignal
	case EventBreaker:
		return colorBreaker
	case EventPosition:
		return colorPosition
	default:
		return colorDefault
	}
}
