package api

import (
	"net/http"

	"foodsnap-core/internal/models"
	"foodsnap-core/internal/response"

	"github.com/gin-gonic/gin"
)

// SetReminderRequest toggles a meal reminder
type SetReminderRequest struct {
	Enabled  *bool  `json:"enabled" binding:"required"`
	Language string `json:"language"`
}

// LanguageRequest carries the UI language
type LanguageRequest struct {
	Language string `json:"language"`
}

func (h *Handler) mealParam(c *gin.Context) (models.MealType, bool) {
	meal, err := models.ParseMealType(c.Param("mealType"))
	if err != nil {
		response.ErrorJSON(c, http.StatusNotFound, err.Error())
		return "", false
	}
	return meal, true
}

// ListReminders returns every meal reminder
// GET /api/reminders
func (h *Handler) ListReminders(c *gin.Context) {
	lang := h.language(c, c.Query("language"))
	out := make([]models.ReminderConfig, 0, len(models.MealTypes))
	for _, meal := range models.MealTypes {
		out = append(out, models.NewReminderConfig(meal, h.Scheduler.ReminderStatus(c.Request.Context(), meal), lang))
	}
	response.SuccessJSON(c, out)
}

// GetReminder returns one meal reminder
// GET /api/reminders/:mealType
func (h *Handler) GetReminder(c *gin.Context) {
	meal, ok := h.mealParam(c)
	if !ok {
		return
	}
	enabled := h.Scheduler.ReminderStatus(c.Request.Context(), meal)
	response.SuccessJSON(c, models.NewReminderConfig(meal, enabled, h.language(c, c.Query("language"))))
}

// SetReminder enables or disables a meal reminder
// PUT /api/reminders/:mealType
func (h *Handler) SetReminder(c *gin.Context) {
	meal, ok := h.mealParam(c)
	if !ok {
		return
	}
	var req SetReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	cfg := h.Scheduler.SetReminder(c.Request.Context(), meal, *req.Enabled, h.language(c, req.Language))
	response.SuccessJSON(c, cfg)
}

// PreviewReminder resolves the content the next reminder would carry
// GET /api/reminders/:mealType/preview
func (h *Handler) PreviewReminder(c *gin.Context) {
	meal, ok := h.mealParam(c)
	if !ok {
		return
	}
	response.SuccessJSON(c, h.Scheduler.ResolveContent(c.Request.Context(), meal, h.language(c, c.Query("language"))))
}

// RefreshReminders reschedules enabled reminders with fresh content
// POST /api/reminders/refresh
func (h *Handler) RefreshReminders(c *gin.Context) {
	var req LanguageRequest
	_ = c.ShouldBindJSON(&req)
	h.Scheduler.RefreshAll(c.Request.Context(), h.language(c, req.Language))
	h.ListReminders(c)
}

// SendTestNotification fires a confirmation notification
// POST /api/reminders/test
func (h *Handler) SendTestNotification(c *gin.Context) {
	var req LanguageRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Scheduler.SendTestNotification(c.Request.Context(), h.language(c, req.Language)); err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to send test notification")
		return
	}
	response.SuccessJSON(c, gin.H{"sent": true})
}
