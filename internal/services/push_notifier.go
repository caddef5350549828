package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"foodsnap-core/internal/models"
	"foodsnap-core/pkg/logging"
)

// SignatureHeader carries the HMAC-SHA256 of the push payload
const SignatureHeader = "X-FoodSnap-Signature"

// PushNotifier delivers fired reminders to a push gateway
type PushNotifier struct {
	url         string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// PushPayload is the body posted to the push gateway
type PushPayload struct {
	Event      string `json:"event"` // "reminder.fired"
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Timestamp  string `json:"timestamp"` // ISO 8601
}

// NewPushNotifier creates a notifier. An empty url logs deliveries instead.
func NewPushNotifier(url, secret string) *PushNotifier {
	return &PushNotifier{
		url:         url,
		secret:      secret,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Send posts the notification, retrying on the 1s, 5s, 30s schedule
func (p *PushNotifier) Send(ctx context.Context, n models.ScheduledNotification) error {
	if p.url == "" {
		logging.Infof("Notification fired - id: %s, title: %s", n.Identifier, n.Title)
		return nil
	}

	payload := PushPayload{
		Event:      "reminder.fired",
		Identifier: n.Identifier,
		Title:      n.Title,
		Body:       n.Body,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < len(p.retryDelays); attempt++ {
		lastErr = p.send(ctx, jsonData)
		if lastErr == nil {
			logging.Infof("Push notification sent - id: %s, attempt: %d", n.Identifier, attempt+1)
			return nil
		}
		logging.Errorf("Push notification failed - id: %s, attempt: %d, error: %v", n.Identifier, attempt+1, lastErr)

		if attempt < len(p.retryDelays)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelays[attempt]):
			}
		}
	}
	return fmt.Errorf("push notification failed after %d attempts: %w", len(p.retryDelays), lastErr)
}

func (p *PushNotifier) send(ctx context.Context, jsonData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FoodSnap-Reminders/1.0")
	if p.secret != "" {
		req.Header.Set(SignatureHeader, Sign(jsonData, p.secret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
