package dashboard

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

// Backend is the read and resolve side of the server the dashboard needs.
type Backend interface {
	ListAlerts(ctx context.Context, in service.ListAlertsInput) ([]models.Alert, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ResolveAlert(ctx context.Context, id string) (*models.Alert, error)
}

// Streamer delivers pushed snapshots.
type Streamer interface {
	Stream(ctx context.Context, fn func(*models.Snapshot) error) error
}

// StreamFunc adapts a plain function to Streamer.
type StreamFunc func(ctx context.Context, fn func(*models.Snapshot) error) error

func (f StreamFunc) Stream(ctx context.Context, fn func(*models.Snapshot) error) error {
	return f(ctx, fn)
}

// View is what an operator sees: unresolved alerts and users.
type View struct {
	Alerts    []models.Alert
	Users     []models.User
	UpdatedAt time.Time
}

func (v View) clone() View {
	return View{
		Alerts:    slices.Clone(v.Alerts),
		Users:     slices.Clone(v.Users),
		UpdatedAt: v.UpdatedAt,
	}
}

type Dashboard struct {
	backend  Backend
	limit    int
	onChange func(View)
	now      func() time.Time

	mu   sync.RWMutex
	view View
}

type Option func(*Dashboard)

// WithOnChange registers fn to receive every new view.
func WithOnChange(fn func(View)) Option {
	return func(d *Dashboard) { d.onChange = fn }
}

// WithAlertLimit caps how many unresolved alerts Refresh loads.
func WithAlertLimit(n int) Option {
	return func(d *Dashboard) { d.limit = n }
}

func New(backend Backend, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend: backend,
		limit:   10,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// View returns a copy of the current view.
func (d *Dashboard) View() View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view.clone()
}

func (d *Dashboard) set(v View) {
	d.mu.Lock()
	d.view = v
	d.mu.Unlock()
	if d.onChange != nil {
		d.onChange(v.clone())
	}
}

// Refresh re-reads alerts and users and replaces the view. The view is left
// untouched if either read fails.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var (
		alerts []models.Alert
		users  []models.User
	)
	unresolved := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		alerts, err = d.backend.ListAlerts(gctx, service.ListAlertsInput{IsResolved: &unresolved, Limit: d.limit})
		return err
	})
	g.Go(func() error {
		var err error
		users, err = d.backend.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.set(View{Alerts: alerts, Users: users, UpdatedAt: d.now()})
	return nil
}

// Apply replaces the view with a pushed snapshot.
func (d *Dashboard) Apply(snap *models.Snapshot) {
	d.set(View{Alerts: snap.Alerts, Users: snap.Users, UpdatedAt: snap.Timestamp})
}

// Speculate applies a local change, runs commit and reverts the change with
// undo if commit fails. apply returns whatever undo needs to restore.
func Speculate[T any](apply func() T, commit func() error, undo func(T)) error {
	prev := apply()
	if err := commit(); err != nil {
		undo(prev)
		return err
	}
	return nil
}

// ResolveAlert marks the alert resolved locally before the backend confirms.
// On failure the previous view is restored. Either way the view is re-read
// afterwards.
func (d *Dashboard) ResolveAlert(ctx context.Context, id string) error {
	err := Speculate(
		func() View {
			d.mu.Lock()
			prev := d.view.clone()
			next := d.view.clone()
			at := d.now()
			for i := range next.Alerts {
				if next.Alerts[i].ID == id {
					next.Alerts[i].IsResolved = true
					next.Alerts[i].ResolvedAt = &at
				}
			}
			d.view = next
			d.mu.Unlock()
			if d.onChange != nil {
				d.onChange(next.clone())
			}
			return prev
		},
		func() error {
			_, err := d.backend.ResolveAlert(ctx, id)
			return err
		},
		d.set,
	)

	if rerr := d.Refresh(ctx); rerr != nil {
		slog.Warn("dashboard refresh after resolve failed", "alert_id", id, "error", rerr)
		if err == nil {
			return rerr
		}
	}
	return err
}

// Poll refreshes now and then every interval until ctx ends. Failed
// refreshes are logged and keep the last view.
func (d *Dashboard) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.pollOnce(ctx)
		}
	}
}

func (d *Dashboard) pollOnce(ctx context.Context) {
	if err := d.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Error("dashboard refresh failed", "error", err)
	}
}

// Follow replaces the view with every snapshot s delivers.
func (d *Dashboard) Follow(ctx context.Context, s Streamer) error {
	return s.Stream(ctx, func(snap *models.Snapshot) error {
		d.Apply(snap)
		return nil
	})
}
