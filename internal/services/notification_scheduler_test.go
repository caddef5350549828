package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T, content ContentSource) (*NotificationScheduler, *LocalScheduler, storage.KV, *metrics.Metrics) {
	t.Helper()
	local := NewLocalScheduler(newTestDB(t))
	kv := storage.NewMemoryStore()
	m := metrics.New(nil)
	s := NewNotificationScheduler(local, kv, content, NotificationSchedulerConfig{UserID: "user-1"}, m)
	return s, local, kv, m
}

func withPrefix(t *testing.T, local *LocalScheduler, prefix string) []models.ScheduledNotification {
	t.Helper()
	rows, err := local.ScheduledNotifications(context.Background())
	require.NoError(t, err)
	var out []models.ScheduledNotification
	for _, n := range rows {
		if strings.HasPrefix(n.Identifier, prefix) {
			out = append(out, n)
		}
	}
	return out
}

func TestSetReminder(t *testing.T) {
	ctx := context.Background()
	s, local, kv, _ := newScheduler(t, &fakeContent{message: "Try a salad"})

	cfg := s.SetReminder(ctx, models.MealLunch, true, "en")
	assert.Equal(t, 10, cfg.Hour)
	assert.Equal(t, 0, cfg.Minute)

	lunch := withPrefix(t, local, "lunch-")
	require.Len(t, lunch, 1)
	assert.Equal(t, "lunch-reminder", lunch[0].Identifier)
	assert.True(t, lunch[0].Repeats)
	assert.Equal(t, "Try a salad for lunch (en)", lunch[0].Body)
	assert.Equal(t, "🍽️ Time to plan your lunch!", lunch[0].Title)
	assert.True(t, s.ReminderStatus(ctx, models.MealLunch))

	s.SetReminder(ctx, models.MealDinner, true, "es-MX")
	dinner := withPrefix(t, local, "dinner-")
	require.Len(t, dinner, 1)
	assert.Equal(t, 18, dinner[0].Hour)
	assert.Equal(t, "🌙 ¡Hora de planear tu cena!", dinner[0].Title)

	s.SetReminder(ctx, models.MealLunch, false, "en")
	assert.Empty(t, withPrefix(t, local, "lunch-"))
	assert.Len(t, withPrefix(t, local, "dinner-"), 1)
	assert.False(t, s.ReminderStatus(ctx, models.MealLunch))

	v, ok, _ := kv.Get(ctx, models.MealLunch.EnabledKey())
	assert.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestSetReminder_ReplacesStrayNotifications(t *testing.T) {
	ctx := context.Background()
	s, local, _, _ := newScheduler(t, &fakeContent{message: "hi"})

	_, err := local.Schedule(ctx, ScheduleRequest{Identifier: "lunch-legacy", Content: models.NotificationContent{Title: "old"}})
	require.NoError(t, err)

	s.SetReminder(ctx, models.MealLunch, true, "en")
	lunch := withPrefix(t, local, "lunch-")
	require.Len(t, lunch, 1)
	assert.Equal(t, "lunch-reminder", lunch[0].Identifier)
}

type reminderSnapshot struct {
	Identifier string
	Title      string
	Body       string
	Hour       int
	Minute     int
	Repeats    bool
}

func snapshot(t *testing.T, local *LocalScheduler) []reminderSnapshot {
	t.Helper()
	rows, err := local.ScheduledNotifications(context.Background())
	require.NoError(t, err)
	out := make([]reminderSnapshot, 0, len(rows))
	for _, n := range rows {
		out = append(out, reminderSnapshot{n.Identifier, n.Title, n.Body, n.Hour, n.Minute, n.Repeats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

func TestRefreshAll_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, local, kv, _ := newScheduler(t, &fakeContent{message: "hi"})
	s.SetReminder(ctx, models.MealLunch, true, "en")
	s.SetReminder(ctx, models.MealDinner, true, "en")

	s.RefreshAll(ctx, "en")
	first := snapshot(t, local)
	s.RefreshAll(ctx, "en")
	second := snapshot(t, local)

	assert.Equal(t, []reminderSnapshot{
		{"dinner-reminder", "🌙 Time to plan your dinner!", "hi for dinner (en)", 18, 0, true},
		{"lunch-reminder", "🍽️ Time to plan your lunch!", "hi for lunch (en)", 10, 0, true},
	}, first)
	assert.Equal(t, first, second)
	assert.True(t, s.ReminderStatus(ctx, models.MealLunch))
	assert.True(t, s.ReminderStatus(ctx, models.MealDinner))

	v, ok, _ := kv.Get(ctx, models.MealLunch.EnabledKey())
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

// orderedNotifier and orderedKV share one log so call order can be checked
type orderedNotifier struct {
	LocalNotifier
	log *[]string
}

func (o orderedNotifier) ScheduledNotifications(ctx context.Context) ([]models.ScheduledNotification, error) {
	*o.log = append(*o.log, "list")
	return o.LocalNotifier.ScheduledNotifications(ctx)
}

func (o orderedNotifier) Cancel(ctx context.Context, identifier string) error {
	*o.log = append(*o.log, "cancel "+identifier)
	return o.LocalNotifier.Cancel(ctx, identifier)
}

func (o orderedNotifier) Schedule(ctx context.Context, req ScheduleRequest) (string, error) {
	*o.log = append(*o.log, "schedule "+req.Identifier)
	return o.LocalNotifier.Schedule(ctx, req)
}

type orderedKV struct {
	storage.KV
	log *[]string
}

func (o orderedKV) Set(ctx context.Context, key, value string) error {
	*o.log = append(*o.log, "set "+key)
	return o.KV.Set(ctx, key, value)
}

func TestSetReminder_CancelsBeforePersisting(t *testing.T) {
	ctx := context.Background()
	var calls []string
	local := NewLocalScheduler(newTestDB(t))
	s := NewNotificationScheduler(
		orderedNotifier{LocalNotifier: local, log: &calls},
		orderedKV{KV: storage.NewMemoryStore(), log: &calls},
		nil,
		NotificationSchedulerConfig{},
		nil,
	)

	s.SetReminder(ctx, models.MealLunch, true, "en")
	calls = nil
	s.SetReminder(ctx, models.MealLunch, false, "en")

	assert.Equal(t, []string{"list", "cancel lunch-reminder", "set lunch_reminder_enabled"}, calls)
}

func TestResolveContent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("remote result is cached", func(t *testing.T) {
		s, _, kv, m := newScheduler(t, &fakeContent{message: "Protein bowl"})
		s.now = func() time.Time { return now }

		c := s.ResolveContent(ctx, models.MealLunch, "en")
		assert.Equal(t, "Protein bowl for lunch (en)", c.Body)

		raw, ok, _ := kv.Get(ctx, models.MealLunch.CacheKey())
		require.True(t, ok)
		var entry models.ContentCacheEntry
		require.NoError(t, json.Unmarshal([]byte(raw), &entry))
		assert.Equal(t, c.Body, entry.Body)
		assert.Equal(t, now.UnixMilli(), entry.Timestamp)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ContentResolutions.WithLabelValues("lunch", OriginRemote)))
	})

	t.Run("fresh cache when remote fails", func(t *testing.T) {
		s, _, kv, _ := newScheduler(t, &fakeContent{err: ErrNetworkTimeout})
		s.now = func() time.Time { return now }
		writeCache(t, kv, models.MealDinner, "Cached soup", now.Add(-23*time.Hour))

		c := s.ResolveContent(ctx, models.MealDinner, "en")
		assert.Equal(t, "Cached soup", c.Body)
		assert.Equal(t, "🌙 Time to plan your dinner!", c.Title)
	})

	t.Run("stale cache falls back to static copy", func(t *testing.T) {
		s, _, kv, m := newScheduler(t, &fakeContent{err: ErrNetworkTimeout})
		s.now = func() time.Time { return now }
		writeCache(t, kv, models.MealLunch, "Old news", now.Add(-25*time.Hour))

		c := s.ResolveContent(ctx, models.MealLunch, "es")
		assert.Equal(t, StaticContent(models.MealLunch, "es"), c)
		assert.Equal(t, "¿Qué vas a comer hoy? Abre FoodSnap para ver sugerencias saludables.", c.Body)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ContentResolutions.WithLabelValues("lunch", OriginFallback)))
	})

	t.Run("cache exactly at ttl is stale", func(t *testing.T) {
		s, _, kv, _ := newScheduler(t, &fakeContent{err: errors.New("500")})
		s.now = func() time.Time { return now }
		writeCache(t, kv, models.MealLunch, "Borderline", now.Add(-24*time.Hour))

		assert.Equal(t, StaticContent(models.MealLunch, "en"), s.ResolveContent(ctx, models.MealLunch, "en"))
	})

	t.Run("corrupt cache is ignored", func(t *testing.T) {
		s, _, kv, _ := newScheduler(t, &fakeContent{err: errors.New("500")})
		require.NoError(t, kv.Set(ctx, models.MealLunch.CacheKey(), "{not json"))
		assert.Equal(t, StaticContent(models.MealLunch, "en"), s.ResolveContent(ctx, models.MealLunch, "en"))
		_, ok, _ := kv.Get(ctx, models.MealLunch.CacheKey())
		assert.False(t, ok)
	})
}

func writeCache(t *testing.T, kv storage.KV, meal models.MealType, body string, at time.Time) {
	t.Helper()
	data, err := json.Marshal(models.ContentCacheEntry{Body: body, Timestamp: at.UnixMilli()})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), meal.CacheKey(), string(data)))
}

func TestSendTestNotification(t *testing.T) {
	ctx := context.Background()
	s, local, _, _ := newScheduler(t, nil)

	require.NoError(t, s.SendTestNotification(ctx, "es"))
	tests := withPrefix(t, local, "test-")
	require.Len(t, tests, 1)
	assert.False(t, tests[0].Repeats)
	assert.Equal(t, "🎉 ¡Notificaciones activadas!", tests[0].Title)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "es", NormalizeLanguage("es"))
	assert.Equal(t, "es", NormalizeLanguage("ES-mx"))
	assert.Equal(t, "en", NormalizeLanguage("fr"))
	assert.Equal(t, "en", NormalizeLanguage(""))
}
