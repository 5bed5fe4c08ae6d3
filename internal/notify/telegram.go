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

// TelegramSender delivers notifications to a Telegram chat via the Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification via the sendMessage API, tagged and styled by
// event kind.
func (t *TelegramSender) Send(ctx context.Context, event, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       telegramText(event, title, message),
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

// telegramText renders the Markdown body: an event tag line, the title in
// bold, then the message. Breaker trips get a leading alert tag so they
// stand out in the chat history.
func telegramText(event, title, message string) string {
	tag := eventTag(event)
	if tag == "" {
		return fmt.Sprintf("*%s*\n%s", title, message)
	}
	return fmt.Sprintf("%s *%s*\n%s", tag, title, message)
}

// eventTag maps an event kind to its chat prefix.
func eventTag(event string) string {
	switch event {
	case EventSignal:
		return "[SIGNAL]"
	case EventBreaker:
		return "[ALERT]"
	case EventPosition:
		return "[POSITION]"
	default:
		return ""
	}
}
