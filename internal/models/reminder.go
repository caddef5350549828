package models

import (
	"fmt"
	"time"
)

// MealType identifies a daily reminder slot
type MealType string

const (
	MealLunch  MealType = "lunch"
	MealDinner MealType = "dinner"
)

// MealTypes lists every reminder slot in scheduling order
var MealTypes = []MealType{MealLunch, MealDinner}

// ParseMealType validates a meal type coming from the outside
func ParseMealType(v string) (MealType, error) {
	switch MealType(v) {
	case MealLunch, MealDinner:
		return MealType(v), nil
	}
	return "", fmt.Errorf("unknown meal type %q", v)
}

// FireTime returns the fixed daily hour and minute for the meal reminder
func (m MealType) FireTime() (hour, minute int) {
	if m == MealDinner {
		return 18, 0
	}
	return 10, 0
}

// IdentifierPrefix is the tag every scheduled notification of this meal starts with
func (m MealType) IdentifierPrefix() string {
	return string(m) + "-"
}

// NotificationID is the identifier used for the meal's daily reminder
func (m MealType) NotificationID() string {
	return m.IdentifierPrefix() + "reminder"
}

// EnabledKey is the persisted storage key for the reminder toggle
func (m MealType) EnabledKey() string {
	return string(m) + "_reminder_enabled"
}

// CacheKey is the persisted storage key for the smart content cache
func (m MealType) CacheKey() string {
	return "smart_notification_cache_" + string(m)
}

// ReminderConfig is the desired state of one meal reminder
type ReminderConfig struct {
	MealType MealType `json:"meal_type"`
	Enabled  bool     `json:"enabled"`
	Hour     int      `json:"hour"`
	Minute   int      `json:"minute"`
	Language string   `json:"language"`
}

// NewReminderConfig builds the config for a meal with its fixed fire time
func NewReminderConfig(meal MealType, enabled bool, language string) ReminderConfig {
	h, m := meal.FireTime()
	return ReminderConfig{MealType: meal, Enabled: enabled, Hour: h, Minute: m, Language: language}
}

// NotificationContent is the copy shown in a reminder
type NotificationContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ContentCacheEntry is the persisted copy of the last fetched smart message
type ContentCacheEntry struct {
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// FreshAt reports whether the entry is still usable at now given ttl
func (e ContentCacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	if e.Body == "" {
		return false
	}
	return now.Sub(time.UnixMilli(e.Timestamp)) < ttl
}
