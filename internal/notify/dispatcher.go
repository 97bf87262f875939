package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/worker"
)

// ErrNoChannel is returned by a Notifier that has nowhere to deliver an alert,
// for example a user without a linked chat. It is not treated as a failure.
var ErrNoChannel = errors.New("no notification channel for recipient")

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert models.Alert) error
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type job struct {
	notifier Notifier
	alert    models.Alert
}

// Dispatcher delivers alerts to every notifier in the background. Delivery is
// best effort and at most once: a full queue drops the job.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	pool      *worker.Pool[job]
	metrics   *metrics.Metrics
	cancel    context.CancelFunc
}

func NewDispatcher(notifiers []Notifier, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	d := &Dispatcher{
		notifiers: notifiers,
		timeout:   cfg.Timeout,
		metrics:   m,
	}
	d.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, d.process)
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.pool.Start(ctx)
	slog.Info("notification dispatcher started", "notifiers", len(d.notifiers))
}

// Dispatch queues the alert for every notifier and returns immediately. Jobs
// refused by a full queue count as "dropped", those refused after Stop as
// "stopped".
func (d *Dispatcher) Dispatch(alert models.Alert) {
	for _, n := range d.notifiers {
		err := d.pool.TrySubmit(job{notifier: n, alert: alert})
		switch {
		case errors.Is(err, worker.ErrPoolStopped):
			slog.Warn("notification dispatcher stopped, discarding task", "notifier", n.Name(), "alert_id", alert.ID)
			d.metrics.Notification(n.Name(), "stopped")
		case err != nil:
			slog.Warn("notification queue full, dropping task", "notifier", n.Name(), "alert_id", alert.ID)
			d.metrics.Notification(n.Name(), "dropped")
		}
	}
}

// Stop drains queued jobs, then releases the workers.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
	if d.cancel != nil {
		d.cancel()
	}
	slog.Info("notification dispatcher stopped")
}

func (d *Dispatcher) process(ctx context.Context, j job) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	name := j.notifier.Name()
	err := j.notifier.Notify(ctx, j.alert)
	switch {
	case errors.Is(err, ErrNoChannel):
		slog.Debug("no notification channel", "notifier", name, "alert_id", j.alert.ID, "user_id", j.alert.UserID)
		d.metrics.Notification(name, "skipped")
		return nil
	case err != nil:
		slog.Error("notification failed", "notifier", name, "alert_id", j.alert.ID, "error", err)
		d.metrics.Notification(name, "failed")
		return err
	}
	d.metrics.Notification(name, "sent")
	return nil
}
