package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-relay/pkg/logger"
)

// Responder delivers a reply into the chat the request came from. The
// gateway pairing itself lives on the other side of the webhook.
type Responder interface {
	Reply(ctx context.Context, chatID, messageID, text string) error
}

type replyPayload struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text"`
}

// WebhookResponder posts replies as JSON to the gateway's reply endpoint.
type WebhookResponder struct {
	url    string
	client *http.Client
}

func NewWebhookResponder(url string) *WebhookResponder {
	return &WebhookResponder{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookResponder) Reply(ctx context.Context, chatID, messageID, text string) error {
	body, err := json.Marshal(replyPayload{ChatID: chatID, MessageID: messageID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("reply webhook returned %s", resp.Status)
	}
	return nil
}

// NopResponder is used when no reply webhook is configured. Replies land in
// the log instead of a chat.
type NopResponder struct {
	Log *logger.Logger
}

func (n NopResponder) Reply(ctx context.Context, chatID, messageID, text string) error {
	if n.Log != nil {
		n.Log.Infof("chat %s reply (no webhook configured): %s", chatID, text)
	}
	return nil
}
