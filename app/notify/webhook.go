package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnknownDestination indicates a subscribed destination with no webhook
// URL in the destination table.
var ErrUnknownDestination = errors.New("no webhook configured for destination")

var _ Sink = (*WebhookSink)(nil)

// WebhookSink posts Discord-compatible embed payloads.
type WebhookSink struct {
	client    *http.Client
	table     *DestinationTable
	userAgent string
	timeout   time.Duration
}

func NewWebhookSink(client *http.Client, table *DestinationTable, userAgent string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		client:    client,
		table:     table,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

type webhookEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       int                `json:"color"`
	Footer      webhookEmbedFooter `json:"footer"`
}

type webhookEmbedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

func (s *WebhookSink) Send(ctx context.Context, destination string, msg Message) error {
	url, ok := s.table.URL(destination)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, destination)
	}

	payload := webhookPayload{
		Embeds: []webhookEmbed{{
			Title:       msg.Title,
			Description: msg.Body,
			Color:       msg.Color,
			Footer:      webhookEmbedFooter{Text: msg.Label},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook rejected message: %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}
