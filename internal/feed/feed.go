package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/mr1hm/safetywatch/internal/models"
)

// EmitFunc delivers one snapshot to a client. Returning an error ends the
// client's loop.
type EmitFunc func(snap *models.Snapshot) error

// Feed drives one snapshot loop per connected client.
type Feed struct {
	snapshots *Snapshotter
	hub       *Hub
	interval  time.Duration
}

func New(snapshots *Snapshotter, interval time.Duration) *Feed {
	return &Feed{
		snapshots: snapshots,
		hub:       NewHub(),
		interval:  interval,
	}
}

// Notify wakes every loop for an immediate snapshot. Called after mutations.
func (f *Feed) Notify() {
	f.snapshots.Invalidate()
	f.hub.Notify()
}

// Close ends every running loop.
func (f *Feed) Close() {
	f.hub.Close()
}

func (f *Feed) Clients() int {
	return f.hub.SubscriberCount()
}

func (f *Feed) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	return f.snapshots.Snapshot(ctx)
}

// Run emits a snapshot immediately, then on every tick and refresh signal,
// until ctx ends, the feed is closed or emit fails. Query failures are logged
// and that tick is skipped.
func (f *Feed) Run(ctx context.Context, emit EmitFunc) error {
	id, refresh := f.hub.Subscribe()
	defer f.hub.Unsubscribe(id)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// Initial snapshot
	if err := f.push(ctx, emit); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-refresh:
			if !ok {
				return nil
			}
			if err := f.push(ctx, emit); err != nil {
				return err
			}
		case <-ticker.C:
			if err := f.push(ctx, emit); err != nil {
				return err
			}
		}
	}
}

func (f *Feed) push(ctx context.Context, emit EmitFunc) error {
	snap, err := f.snapshots.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("snapshot query failed", "error", err)
		}
		return nil
	}
	return emit(snap)
}
