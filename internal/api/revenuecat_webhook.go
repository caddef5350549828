package api

import (
	"errors"
	"net/http"

	"foodsnap-core/internal/response"
	"foodsnap-core/internal/revenuecat"
	"foodsnap-core/pkg/logging"

	"github.com/gin-gonic/gin"
)

// RevenueCatWebhook receives subscription backend events and refreshes the
// entitlement of the configured app user
// POST /api/revenuecat/webhook
func (h *Handler) RevenueCatWebhook(c *gin.Context) {
	var payload revenuecat.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logging.Errorf("Failed to parse subscription webhook: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid notification format")
		return
	}
	ev := payload.Event
	if h.Metrics != nil {
		h.Metrics.WebhookEvents.WithLabelValues(revenuecat.EventTypeLabel(ev.Type)).Inc()
	}

	if h.Replay != nil && h.Replay.IsReplay(ev.ID, ev.EventTimestampMs) {
		response.SuccessJSON(c, gin.H{"handled": false, "duplicate": true})
		return
	}

	handled, err := h.Events.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, revenuecat.ErrNotConfigured) {
			logging.Warnf("Subscription webhook %s ignored, backend not configured", ev.ID)
			response.SuccessJSON(c, gin.H{"handled": false})
			return
		}
		// let the backend redeliver
		if h.Replay != nil {
			h.Replay.Forget(ev.ID, ev.EventTimestampMs)
		}
		logging.Errorf("Subscription webhook %s failed: %v", ev.ID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to process notification")
		return
	}

	response.SuccessJSON(c, gin.H{"handled": handled})
}
