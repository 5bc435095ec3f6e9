package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"swingref/application/port"
)

var _ port.Notifier = (*Notifier)(nil)

// Notifier sends plain-text Telegram notifications for leg creation and
// fib-level crossing events.
type Notifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewNotifier creates a new Telegram notifier.
func NewNotifier(botToken, chatID string, enabled bool) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		enabled:  enabled,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether Telegram notifications are active.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify sends message to the configured chat.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if !n.enabled {
		return nil
	}
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram bot token or chat ID not configured")
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)

	data := url.Values{}
	data.Set("chat_id", n.chatID)
	data.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.URL.RawQuery = data.Encode()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
