package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Platform values understood by the purchase layer
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

type Config struct {
	// Server configuration
	Port      string
	Mode      string
	LogLevel  string
	LogFormat string

	// Storage configuration
	StorageBackend string // database, redis or memory
	DatabaseURL    string
	SQLitePath     string
	RedisURL       string

	// Subscription backend configuration
	Platform              string
	RevenueCatIOSKey      string
	RevenueCatAndroidKey  string
	EntitlementID         string
	OfferingID            string
	RevenueCatBaseURL     string
	RevenueCatWebhookAuth string

	// Smart notification configuration
	UserID            string
	ContentBaseURL    string
	ContentTimeout    time.Duration
	ContentCacheTTL   time.Duration
	DefaultLanguage   string
	PushWebhookURL    string
	PushWebhookSecret string
	DispatchInterval  time.Duration
	ClientAPIKey      string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file; a missing file is fine
	_ = godotenv.Load()

	AppConfig = &Config{
		Port:      getEnv("PORT", "8080"),
		Mode:      getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "database")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "foodsnap-core.db"),
		RedisURL:       getEnv("REDIS_URL", ""),

		Platform:              strings.ToLower(getEnv("PLATFORM", PlatformIOS)),
		RevenueCatIOSKey:      getEnv("REVENUECAT_IOS_KEY", ""),
		RevenueCatAndroidKey:  getEnv("REVENUECAT_ANDROID_KEY", ""),
		EntitlementID:         getEnv("REVENUECAT_ENTITLEMENT", "premium"),
		OfferingID:            getEnv("REVENUECAT_OFFERING", "default"),
		RevenueCatBaseURL:     getEnv("REVENUECAT_BASE_URL", "https://api.revenuecat.com"),
		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_TOKEN", ""),

		UserID:            getEnv("USER_ID", ""),
		ContentBaseURL:    getEnv("CONTENT_BASE_URL", ""),
		ContentTimeout:    time.Duration(getEnvInt("CONTENT_TIMEOUT_SECONDS", 10)) * time.Second,
		ContentCacheTTL:   time.Duration(getEnvInt("CONTENT_CACHE_TTL_HOURS", 24)) * time.Hour,
		DefaultLanguage:   getEnv("DEFAULT_LANGUAGE", "en"),
		PushWebhookURL:    getEnv("PUSH_WEBHOOK_URL", ""),
		PushWebhookSecret: getEnv("PUSH_WEBHOOK_SECRET", ""),
		DispatchInterval:  time.Duration(getEnvInt("DISPATCH_INTERVAL_SECONDS", 30)) * time.Second,
		ClientAPIKey:      getEnv("CLIENT_API_KEY", ""),
	}

	return nil
}

// RevenueCatAPIKey returns the API key matching the configured platform
func (c *Config) RevenueCatAPIKey() string {
	if c.Platform == PlatformIOS {
		return c.RevenueCatIOSKey
	}
	return c.RevenueCatAndroidKey
}

// PurchasesSupported reports whether the platform can reach native purchases
func (c *Config) PurchasesSupported() bool {
	return c.Platform == PlatformIOS || c.Platform == PlatformAndroid
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
