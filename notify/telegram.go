// Package notify is the outbound notification sink. Delivery is best-effort
// and fire-and-forget: a failed send is logged and swallowed, never surfaced
// to the trading cycle.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier sends a text message somewhere a human will see it.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Telegram posts messages through the Bot API. A Telegram with no token is
// disabled and drops everything silently.
type Telegram struct {
	token      string
	chatID     string
	httpClient *http.Client
	log        *logrus.Entry
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logrus.WithField("component", "notify"),
	}
}

// Enabled reports whether the sink is configured.
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

func (t *Telegram) Send(ctx context.Context, text string) {
	if !t.Enabled() {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		t.log.WithError(err).Debug("marshal notification")
		return
	}

	url := "https://api.telegram.org/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.log.WithError(err).Debug("create notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.WithError(err).Debug("notification send failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.log.WithField("status", resp.StatusCode).Debug("notification rejected")
	}
}

// Nop drops everything. Useful in tests.
type Nop struct{}

func (Nop) Send(context.Context, string) {}
