package revenuecat

import (
	"context"
	"fmt"

	"foodsnap-core/internal/models"
	"foodsnap-core/pkg/logging"
)

// WebhookEvent is the event object of a subscription backend webhook
type WebhookEvent struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	AppUserID         string   `json:"app_user_id"`
	OriginalAppUserID string   `json:"original_app_user_id"`
	Aliases           []string `json:"aliases"`
	EntitlementIDs    []string `json:"entitlement_ids"`
	ProductID         string   `json:"product_id"`
	Environment       string   `json:"environment"`
	EventTimestampMs  int64    `json:"event_timestamp_ms"`
}

// WebhookPayload wraps a webhook event
type WebhookPayload struct {
	APIVersion string       `json:"api_version"`
	Event      WebhookEvent `json:"event"`
}

// EventTypeTest is sent from the dashboard to check the endpoint
const EventTypeTest = "TEST"

var knownEventTypes = map[string]bool{
	EventTypeTest:                 true,
	"INITIAL_PURCHASE":            true,
	"RENEWAL":                     true,
	"CANCELLATION":                true,
	"UNCANCELLATION":              true,
	"NON_RENEWING_PURCHASE":       true,
	"SUBSCRIPTION_PAUSED":         true,
	"SUBSCRIPTION_EXTENDED":       true,
	"EXPIRATION":                  true,
	"BILLING_ISSUE":               true,
	"PRODUCT_CHANGE":              true,
	"TRANSFER":                    true,
	"REFUND_REVERSED":             true,
	"TEMPORARY_ENTITLEMENT_GRANT": true,
	"INVOICE_ISSUANCE":            true,
}

// EventTypeLabel returns the event type for use as a metric label.
// Unknown types collapse to "other" so callers cannot grow the label set.
func EventTypeLabel(eventType string) string {
	if knownEventTypes[eventType] {
		return eventType
	}
	return "other"
}

// Subscribe registers cb for every customer info update and returns a
// function that removes it. The returned function is safe to call twice.
func (c *Client) Subscribe(cb func(*models.CustomerInfo)) func() {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = cb
	c.listenerMu.Unlock()

	return func() {
		c.listenerMu.Lock()
		delete(c.listeners, id)
		c.listenerMu.Unlock()
	}
}

// Publish hands info to every registered listener
func (c *Client) Publish(info *models.CustomerInfo) {
	if info == nil {
		return
	}

	c.listenerMu.Lock()
	callbacks := make([]func(*models.CustomerInfo), 0, len(c.listeners))
	for _, cb := range c.listeners {
		callbacks = append(callbacks, cb)
	}
	c.listenerMu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Errorf("Customer info listener panicked: %v", r)
				}
			}()
			cb(info)
		}()
	}
}

// concerns reports whether the event belongs to the configured app user
func (c *Client) concerns(ev WebhookEvent) bool {
	userID := c.AppUserID()
	if userID == "" {
		return false
	}
	if ev.AppUserID == userID || ev.OriginalAppUserID == userID {
		return true
	}
	for _, alias := range ev.Aliases {
		if alias == userID {
			return true
		}
	}
	return false
}

// HandleEvent re-reads the subscriber after a backend event for this user and
// publishes the result. It reports whether listeners were notified.
func (c *Client) HandleEvent(ctx context.Context, ev WebhookEvent) (bool, error) {
	if !c.IsConfigured() {
		return false, ErrNotConfigured
	}
	if ev.Type == EventTypeTest {
		logging.Infof("Subscription webhook test event received - id: %s", ev.ID)
		return false, nil
	}
	if !c.concerns(ev) {
		logging.Debugf("Ignoring subscription event %s for app_user_id %s", ev.ID, ev.AppUserID)
		return false, nil
	}

	info, err := c.CustomerInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to refresh customer info for event %s: %w", ev.ID, err)
	}

	logging.Infof("Subscription event processed - id: %s, type: %s, active_entitlements: %d",
		ev.ID, ev.Type, len(info.Entitlements.Active))
	c.Publish(info)
	return true, nil
}
