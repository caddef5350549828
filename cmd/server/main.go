package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodsnap-core/internal/api"
	"foodsnap-core/internal/config"
	"foodsnap-core/internal/database"
	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/revenuecat"
	"foodsnap-core/internal/services"
	"foodsnap-core/internal/storage"
	"foodsnap-core/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.LogLevel, cfg.LogFormat)

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if err := database.CloseDatabase(); err != nil {
			logging.Errorf("Failed to close database: %v", err)
		}
	}()

	kv, err := newKV(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Get()
	rc := revenuecat.NewClient(cfg.RevenueCatBaseURL, cfg.Platform, kv)

	store := services.NewEntitlementStore(rc, kv, services.EntitlementStoreConfig{
		APIKey:        cfg.RevenueCatAPIKey(),
		AppUserID:     cfg.UserID,
		EntitlementID: cfg.EntitlementID,
	}, m)
	store.Initialize(ctx)
	defer store.Close()

	gateway := services.NewPurchaseGateway(rc, store, cfg.PurchasesSupported(), cfg.OfferingID, cfg.EntitlementID, m)

	userID := cfg.UserID
	if userID == "" {
		userID = rc.AppUserID()
	}
	local := services.NewLocalScheduler(database.GetDB())
	scheduler := services.NewNotificationScheduler(
		local,
		kv,
		services.NewContentClient(cfg.ContentBaseURL, cfg.ContentTimeout),
		services.NotificationSchedulerConfig{UserID: userID, CacheTTL: cfg.ContentCacheTTL},
		m,
	)
	scheduler.RefreshAll(ctx, cfg.DefaultLanguage)

	dispatcher := services.NewDispatcher(local, services.NewPushNotifier(cfg.PushWebhookURL, cfg.PushWebhookSecret), cfg.DispatchInterval, m)
	go dispatcher.Run(ctx)

	replay := services.NewReplayGuard()
	defer replay.Stop()

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, &api.Handler{
		Store:           store,
		Gateway:         gateway,
		Scheduler:       scheduler,
		Events:          rc,
		Replay:          replay,
		Metrics:         m,
		DefaultLanguage: cfg.DefaultLanguage,
	}, api.RouteOptions{
		ClientAPIKey: cfg.ClientAPIKey,
		WebhookToken: cfg.RevenueCatWebhookAuth,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}
}

// newKV picks the key-value backend for persisted settings
func newKV(cfg *config.Config) (storage.KV, error) {
	switch cfg.StorageBackend {
	case "memory":
		logging.Warnf("Using in-memory storage, settings will not survive a restart")
		return storage.NewMemoryStore(), nil
	case "redis":
		client := database.GetRedis()
		if client == nil {
			return nil, errors.New("STORAGE_BACKEND=redis requires REDIS_URL")
		}
		return storage.NewRedisStore(client, "foodsnap"), nil
	default:
		return storage.NewGormStore(database.GetDB()), nil
	}
}
