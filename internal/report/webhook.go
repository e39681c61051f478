package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed    = 15158332 // 0xE74C3C - errors
	colorYellow = 16776960 // 0xFFFF00 - warnings
	colorBlue   = 3447003  // 0x3498DB - informational

	// Default timeout for webhook requests
	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
)

// WebhookPayload represents a Discord webhook message.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// NewReportPayload formats a report as a Discord embed, colored by severity.
func NewReportPayload(message, detail string, severity int) WebhookPayload {
	color := colorBlue
	switch severity {
	case SeverityWarning:
		color = colorYellow
	case SeverityError:
		color = colorRed
	}
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       message,
				Description: detail,
				Color:       color,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookReporter sends reports to a Discord webhook.
type WebhookReporter struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookReporter creates a new WebhookReporter.
func NewWebhookReporter(webhookURL string) *WebhookReporter {
	return &WebhookReporter{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// Report delivers the report to the webhook. Delivery failures are logged
// and swallowed; reporting must never become a new fault in the core.
func (r *WebhookReporter) Report(ctx context.Context, message, detail string, severity int) {
	payload := NewReportPayload(message, detail, severity)
	if err := r.sendPayload(ctx, payload); err != nil {
		log.Printf("[Webhook] Failed to deliver report: %v", err)
	}
}

// sendPayload sends a webhook payload with retry on rate limiting.
func (r *WebhookReporter) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", r.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Success - Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		// Rate limited - wait and retry
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			waitDuration := time.Second
			if retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					waitDuration = time.Duration(seconds) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		// Other error
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}
