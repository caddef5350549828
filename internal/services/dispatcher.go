package services

import (
	"context"
	"time"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/pkg/logging"
)

// Sender delivers a fired notification
type Sender interface {
	Send(ctx context.Context, n models.ScheduledNotification) error
}

// Dispatcher fires due local notifications on a fixed interval
type Dispatcher struct {
	scheduler *LocalScheduler
	sender    Sender
	interval  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewDispatcher creates a dispatcher
func NewDispatcher(scheduler *LocalScheduler, sender Sender, interval time.Duration, m *metrics.Metrics) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		scheduler: scheduler,
		sender:    sender,
		interval:  interval,
		metrics:   m,
		now:       time.Now,
	}
}

// Run dispatches until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logging.Infof("Reminder dispatcher started - interval: %s", d.interval)
	for {
		if _, err := d.DispatchDue(ctx); err != nil {
			logging.Errorf("Reminder dispatch failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logging.Infof("Reminder dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// DispatchDue sends every due notification and returns how many were delivered.
// Failed deliveries stay pending for the next tick.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.scheduler.Due(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range due {
		if err := d.sender.Send(ctx, n); err != nil {
			logging.Errorf("Failed to deliver notification %s: %v", n.Identifier, err)
			d.count("failed")
			continue
		}
		if err := d.scheduler.MarkFired(ctx, n, now); err != nil {
			logging.Errorf("%v", err)
		}
		d.count("delivered")
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) count(result string) {
	if d.metrics != nil {
		d.metrics.NotificationsFired.WithLabelValues(result).Inc()
	}
}
