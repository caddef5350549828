package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/storage"
	"foodsnap-core/pkg/logging"

	"github.com/google/uuid"
)

// Content origins, also used as metric labels
const (
	OriginRemote   = "remote"
	OriginCache    = "cache"
	OriginFallback = "fallback"
)

type staticCopy struct {
	lunchTitle, lunchBody   string
	dinnerTitle, dinnerBody string
	testTitle, testBody     string
}

var staticCopies = map[string]staticCopy{
	"en": {
		lunchTitle:  "🍽️ Time to plan your lunch!",
		lunchBody:   "What are you having today? Open FoodSnap for healthy suggestions.",
		dinnerTitle: "🌙 Time to plan your dinner!",
		dinnerBody:  "Know what's for dinner? Check your day and pick something nutritious.",
		testTitle:   "🎉 Notifications enabled!",
		testBody:    "You'll receive reminders for lunch and dinner.",
	},
	"es": {
		lunchTitle:  "🍽️ ¡Hora de planear tu almuerzo!",
		lunchBody:   "¿Qué vas a comer hoy? Abre FoodSnap para ver sugerencias saludables.",
		dinnerTitle: "🌙 ¡Hora de planear tu cena!",
		dinnerBody:  "¿Ya sabes qué cenar? Revisa tu día y elige algo nutritivo.",
		testTitle:   "🎉 ¡Notificaciones activadas!",
		testBody:    "Recibirás recordatorios para el almuerzo y la cena.",
	},
}

// NormalizeLanguage maps a locale to a supported copy language
func NormalizeLanguage(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "es") {
		return "es"
	}
	return "en"
}

// StaticContent is the bundled reminder copy for a meal
func StaticContent(meal models.MealType, language string) models.NotificationContent {
	c := staticCopies[NormalizeLanguage(language)]
	if meal == models.MealDinner {
		return models.NotificationContent{Title: c.dinnerTitle, Body: c.dinnerBody}
	}
	return models.NotificationContent{Title: c.lunchTitle, Body: c.lunchBody}
}

// NotificationSchedulerConfig configures the reminder scheduler
type NotificationSchedulerConfig struct {
	UserID   string
	CacheTTL time.Duration
}

// NotificationScheduler manages the lunch and dinner reminders
type NotificationScheduler struct {
	notifier LocalNotifier
	kv       storage.KV
	content  ContentSource
	cfg      NotificationSchedulerConfig
	metrics  *metrics.Metrics
	now      func() time.Time

	// one lock per meal so toggles of the same reminder never interleave
	locks map[models.MealType]*sync.Mutex
}

// NewNotificationScheduler creates a scheduler
func NewNotificationScheduler(notifier LocalNotifier, kv storage.KV, content ContentSource, cfg NotificationSchedulerConfig, m *metrics.Metrics) *NotificationScheduler {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	locks := make(map[models.MealType]*sync.Mutex, len(models.MealTypes))
	for _, meal := range models.MealTypes {
		locks[meal] = &sync.Mutex{}
	}
	return &NotificationScheduler{
		notifier: notifier,
		kv:       kv,
		content:  content,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
		locks:    locks,
	}
}

// SetReminder cancels the meal's pending reminders, persists the toggle and,
// when enabled, schedules a fresh daily one. Scheduling failures are logged.
func (s *NotificationScheduler) SetReminder(ctx context.Context, meal models.MealType, enabled bool, language string) models.ReminderConfig {
	lock, ok := s.locks[meal]
	if !ok {
		logging.Warnf("Ignoring reminder for unknown meal %q", meal)
		return models.ReminderConfig{MealType: meal}
	}
	lock.Lock()
	defer lock.Unlock()

	s.cancelMeal(ctx, meal)

	if err := s.kv.Set(ctx, meal.EnabledKey(), strconv.FormatBool(enabled)); err != nil {
		s.persistFailed(&PersistenceError{Key: meal.EnabledKey(), Err: err})
	}

	cfg := models.NewReminderConfig(meal, enabled, NormalizeLanguage(language))
	if !enabled {
		logging.Infof("Reminder disabled - meal: %s", meal)
		return cfg
	}

	content := s.ResolveContent(ctx, meal, cfg.Language)
	_, err := s.notifier.Schedule(ctx, ScheduleRequest{
		Identifier: meal.NotificationID(),
		Content:    content,
		Trigger:    &DailyTrigger{Hour: cfg.Hour, Minute: cfg.Minute},
	})
	if err != nil {
		logging.Errorf("Failed to schedule %s reminder: %v", meal, err)
		return cfg
	}
	logging.Infof("Reminder scheduled - meal: %s, at: %02d:%02d", meal, cfg.Hour, cfg.Minute)
	return cfg
}

func (s *NotificationScheduler) cancelMeal(ctx context.Context, meal models.MealType) {
	pending, err := s.notifier.ScheduledNotifications(ctx)
	if err != nil {
		logging.Errorf("Failed to list scheduled notifications: %v", err)
		return
	}
	for _, n := range pending {
		if !strings.HasPrefix(n.Identifier, meal.IdentifierPrefix()) {
			continue
		}
		if err := s.notifier.Cancel(ctx, n.Identifier); err != nil {
			logging.Errorf("Failed to cancel notification %s: %v", n.Identifier, err)
		}
	}
}

// ResolveContent returns the reminder copy: remote message first, then a
// cached message younger than the TTL, then the bundled copy.
func (s *NotificationScheduler) ResolveContent(ctx context.Context, meal models.MealType, language string) models.NotificationContent {
	static := StaticContent(meal, language)

	if s.content != nil {
		msg, err := s.content.FetchMessage(ctx, s.cfg.UserID, meal, NormalizeLanguage(language))
		if err == nil {
			s.storeCache(ctx, meal, msg)
			s.countOrigin(meal, OriginRemote)
			return models.NotificationContent{Title: static.Title, Body: msg}
		}
		logging.Warnf("Smart content unavailable for %s: %v", meal, err)
	}

	if body, ok := s.cachedBody(ctx, meal); ok {
		s.countOrigin(meal, OriginCache)
		return models.NotificationContent{Title: static.Title, Body: body}
	}

	s.countOrigin(meal, OriginFallback)
	return static
}

func (s *NotificationScheduler) storeCache(ctx context.Context, meal models.MealType, body string) {
	data, err := json.Marshal(models.ContentCacheEntry{Body: body, Timestamp: s.now().UnixMilli()})
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, meal.CacheKey(), string(data)); err != nil {
		s.persistFailed(&PersistenceError{Key: meal.CacheKey(), Err: err})
	}
}

func (s *NotificationScheduler) cachedBody(ctx context.Context, meal models.MealType) (string, bool) {
	raw, ok, err := s.kv.Get(ctx, meal.CacheKey())
	if err != nil {
		logging.Warnf("Failed to read content cache for %s: %v", meal, err)
		return "", false
	}
	if !ok {
		return "", false
	}
	var entry models.ContentCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logging.Warnf("Discarding unreadable content cache for %s: %v", meal, err)
		if err := s.kv.Remove(ctx, meal.CacheKey()); err != nil {
			logging.Warnf("Failed to remove content cache for %s: %v", meal, err)
		}
		return "", false
	}
	if !entry.FreshAt(s.now(), s.cfg.CacheTTL) {
		return "", false
	}
	return entry.Body, true
}

// ReminderStatus reports the persisted toggle. Missing or unreadable means off.
func (s *NotificationScheduler) ReminderStatus(ctx context.Context, meal models.MealType) bool {
	v, ok, err := s.kv.Get(ctx, meal.EnabledKey())
	if err != nil {
		logging.Warnf("Failed to read reminder status for %s: %v", meal, err)
		return false
	}
	return ok && v == "true"
}

// RefreshAll reschedules every enabled reminder so its content is current
func (s *NotificationScheduler) RefreshAll(ctx context.Context, language string) {
	for _, meal := range models.MealTypes {
		if s.ReminderStatus(ctx, meal) {
			s.SetReminder(ctx, meal, true, language)
		}
	}
}

// SendTestNotification fires a one-off confirmation immediately
func (s *NotificationScheduler) SendTestNotification(ctx context.Context, language string) error {
	c := staticCopies[NormalizeLanguage(language)]
	_, err := s.notifier.Schedule(ctx, ScheduleRequest{
		Identifier: "test-" + uuid.NewString(),
		Content:    models.NotificationContent{Title: c.testTitle, Body: c.testBody},
	})
	if err != nil {
		logging.Errorf("Failed to send test notification: %v", err)
	}
	return err
}

func (s *NotificationScheduler) countOrigin(meal models.MealType, origin string) {
	if s.metrics != nil {
		s.metrics.ContentResolutions.WithLabelValues(string(meal), origin).Inc()
	}
}

func (s *NotificationScheduler) persistFailed(err *PersistenceError) {
	logging.Errorf("%v", err)
	if s.metrics != nil {
		s.metrics.PersistenceFailures.Inc()
	}
}
