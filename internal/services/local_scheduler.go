package services

import (
	"context"
	"fmt"
	"time"

	"foodsnap-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyTrigger fires every day at Hour:Minute local time
type DailyTrigger struct {
	Hour   int
	Minute int
}

// ScheduleRequest describes one local notification. A nil Trigger fires once, immediately.
type ScheduleRequest struct {
	Identifier string
	Content    models.NotificationContent
	Trigger    *DailyTrigger
}

// LocalNotifier is the device notification API
type LocalNotifier interface {
	Schedule(ctx context.Context, req ScheduleRequest) (string, error)
	ScheduledNotifications(ctx context.Context) ([]models.ScheduledNotification, error)
	Cancel(ctx context.Context, identifier string) error
}

// LocalScheduler keeps scheduled notifications in the database
type LocalScheduler struct {
	db *gorm.DB
}

// NewLocalScheduler creates a scheduler on db
func NewLocalScheduler(db *gorm.DB) *LocalScheduler {
	return &LocalScheduler{db: db}
}

// Schedule stores the notification, replacing any with the same identifier
func (s *LocalScheduler) Schedule(ctx context.Context, req ScheduleRequest) (string, error) {
	if req.Identifier == "" {
		req.Identifier = uuid.NewString()
	}
	row := models.ScheduledNotification{
		Identifier: req.Identifier,
		Title:      req.Content.Title,
		Body:       req.Content.Body,
	}
	if req.Trigger != nil {
		row.Hour = req.Trigger.Hour
		row.Minute = req.Trigger.Minute
		row.Repeats = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("identifier = ?", req.Identifier).Delete(&models.ScheduledNotification{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule notification %s: %w", req.Identifier, err)
	}
	return req.Identifier, nil
}

// ScheduledNotifications lists every pending notification
func (s *LocalScheduler) ScheduledNotifications(ctx context.Context) ([]models.ScheduledNotification, error) {
	var rows []models.ScheduledNotification
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list scheduled notifications: %w", err)
	}
	return rows, nil
}

// Cancel removes a notification. Unknown identifiers are ignored.
func (s *LocalScheduler) Cancel(ctx context.Context, identifier string) error {
	err := s.db.WithContext(ctx).Unscoped().Where("identifier = ?", identifier).Delete(&models.ScheduledNotification{}).Error
	if err != nil {
		return fmt.Errorf("failed to cancel notification %s: %w", identifier, err)
	}
	return nil
}

// lateWindow bounds how long after its fire time a missed daily reminder is still sent
const lateWindow = time.Hour

// Due returns the notifications that should fire at now. One-shot
// notifications are always due. Daily ones are due once their fire time
// today has passed, if it passed after they were scheduled, within the
// late window, and they have not fired since.
func (s *LocalScheduler) Due(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	rows, err := s.ScheduledNotifications(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]models.ScheduledNotification, 0, len(rows))
	for _, n := range rows {
		if !n.Repeats {
			due = append(due, n)
			continue
		}
		fireAt := time.Date(now.Year(), now.Month(), now.Day(), n.Hour, n.Minute, 0, 0, now.Location())
		if now.Before(fireAt) || now.Sub(fireAt) > lateWindow {
			continue
		}
		if !fireAt.After(n.CreatedAt) {
			continue
		}
		if n.LastFiredAt != nil && !n.LastFiredAt.Before(fireAt) {
			continue
		}
		due = append(due, n)
	}
	return due, nil
}

// MarkFired records a delivery. One-shot notifications are removed.
func (s *LocalScheduler) MarkFired(ctx context.Context, n models.ScheduledNotification, at time.Time) error {
	if !n.Repeats {
		return s.Cancel(ctx, n.Identifier)
	}
	err := s.db.WithContext(ctx).Model(&models.ScheduledNotification{}).
		Where("id = ?", n.ID).
		Update("last_fired_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification %s fired: %w", n.Identifier, err)
	}
	return nil
}
