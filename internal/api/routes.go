package api

import (
	"context"
	"strings"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/middleware"
	"foodsnap-core/internal/revenuecat"
	"foodsnap-core/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventHandler processes subscription backend webhook events
type EventHandler interface {
	HandleEvent(ctx context.Context, ev revenuecat.WebhookEvent) (bool, error)
}

// Handler holds the services behind the HTTP routes
type Handler struct {
	Store           *services.EntitlementStore
	Gateway         *services.PurchaseGateway
	Scheduler       *services.NotificationScheduler
	Events          EventHandler
	Replay          *services.ReplayGuard
	Metrics         *metrics.Metrics
	DefaultLanguage string
}

// RouteOptions configures route protection and the metrics endpoint
type RouteOptions struct {
	ClientAPIKey string
	WebhookToken string
	Gatherer     prometheus.Gatherer // nil uses the default registry
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler, opts RouteOptions) {
	api := r.Group("/api")
	{
		// Premium routes (called by the app UI)
		premium := api.Group("/premium")
		premium.Use(middleware.ClientAuthMiddleware(opts.ClientAPIKey))
		{
			premium.GET("/status", h.GetPremiumStatus)
			premium.POST("/refresh", h.RefreshPremiumStatus)
			premium.GET("/offerings", h.GetOfferings)
			premium.POST("/purchase", h.PurchasePackage)
			premium.POST("/restore", h.RestorePurchases)
		}

		// Reminder routes (called by the app UI)
		reminders := api.Group("/reminders")
		reminders.Use(middleware.ClientAuthMiddleware(opts.ClientAPIKey))
		{
			reminders.GET("", h.ListReminders)
			reminders.POST("/refresh", h.RefreshReminders)
			reminders.POST("/test", h.SendTestNotification)
			reminders.GET("/:mealType", h.GetReminder)
			reminders.PUT("/:mealType", h.SetReminder)
			reminders.GET("/:mealType/preview", h.PreviewReminder)
		}

		// Subscription backend webhook
		webhook := api.Group("/revenuecat")
		webhook.Use(middleware.BearerTokenMiddleware(opts.WebhookToken))
		{
			webhook.POST("/webhook", h.RevenueCatWebhook)
		}
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "foodsnap-core",
		})
	})
}

// language picks the request language, then Accept-Language, then the default
func (h *Handler) language(c *gin.Context, requested string) string {
	if requested != "" {
		return services.NormalizeLanguage(requested)
	}
	if accept := c.GetHeader("Accept-Language"); accept != "" {
		return services.NormalizeLanguage(strings.TrimSpace(strings.Split(accept, ",")[0]))
	}
	return services.NormalizeLanguage(h.DefaultLanguage)
}
