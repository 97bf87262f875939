package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

type fakeSource struct {
	alertCalls atomic.Int64
	userCalls  atomic.Int64
	fail       atomic.Bool

	mu        sync.Mutex
	lastAlert repository.AlertFilter
	lastUsers repository.UserListOptions
}

func (f *fakeSource) ListAlerts(ctx context.Context, opts repository.AlertFilter) ([]models.Alert, error) {
	f.alertCalls.Add(1)
	f.mu.Lock()
	f.lastAlert = opts
	f.mu.Unlock()
	if f.fail.Load() {
		return nil, errors.New("database is locked")
	}
	return []models.Alert{{ID: "a1", Category: models.AlertCategoryFallDetected}}, nil
}

func (f *fakeSource) ListUsers(ctx context.Context, opts repository.UserListOptions) ([]models.User, error) {
	f.userCalls.Add(1)
	f.mu.Lock()
	f.lastUsers = opts
	f.mu.Unlock()
	return nil, nil
}

func TestSnapshotter_Query(t *testing.T) {
	src := &fakeSource{}
	s := NewSnapshotter(src, SnapshotConfig{AlertLimit: 10}, nil)

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.Alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(snap.Alerts))
	}
	if snap.Users == nil {
		t.Error("users should be an empty list, not nil")
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected a generation timestamp")
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.lastAlert.IsResolved == nil || *src.lastAlert.IsResolved {
		t.Error("expected snapshot to request unresolved alerts")
	}
	if src.lastAlert.Limit != 10 {
		t.Errorf("expected limit 10, got %d", src.lastAlert.Limit)
	}
	if !src.lastUsers.WithLatestLocation {
		t.Error("expected users with their latest location")
	}
}

func TestSnapshotter_CacheSharesAndInvalidates(t *testing.T) {
	src := &fakeSource{}
	s := NewSnapshotter(src, SnapshotConfig{CacheTTL: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Snapshot(ctx); err != nil {
			t.Fatalf("snapshot: %v", err)
		}
	}
	if got := src.alertCalls.Load(); got != 1 {
		t.Errorf("expected one query while cached, got %d", got)
	}

	s.Invalidate()
	if _, err := s.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := src.alertCalls.Load(); got != 2 {
		t.Errorf("expected a fresh query after invalidate, got %d", got)
	}
}

func TestSnapshotter_NoCacheQueriesEveryTime(t *testing.T) {
	src := &fakeSource{}
	s := NewSnapshotter(src, SnapshotConfig{}, nil)

	for i := 0; i < 3; i++ {
		s.Snapshot(context.Background())
	}
	if got := src.alertCalls.Load(); got != 3 {
		t.Errorf("expected 3 queries, got %d", got)
	}
}

func TestFeed_RunEmitsOnTicks(t *testing.T) {
	src := &fakeSource{}
	f := New(NewSnapshotter(src, SnapshotConfig{}, nil), 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var count int
	err := f.Run(ctx, func(snap *models.Snapshot) error {
		count++
		if count == 3 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count < 3 {
		t.Errorf("expected at least 3 snapshots, got %d", count)
	}
	if f.Clients() != 0 {
		t.Errorf("expected loop to unsubscribe, got %d clients", f.Clients())
	}
}

func TestFeed_RunStopsOnEmitError(t *testing.T) {
	f := New(NewSnapshotter(&fakeSource{}, SnapshotConfig{}, nil), 10*time.Millisecond)
	writeErr := errors.New("broken pipe")

	err := f.Run(context.Background(), func(snap *models.Snapshot) error {
		return writeErr
	})
	if !errors.Is(err, writeErr) {
		t.Errorf("expected emit error, got %v", err)
	}
}

func TestFeed_QueryFailureKeepsStreamOpen(t *testing.T) {
	src := &fakeSource{}
	src.fail.Store(true)
	f := New(NewSnapshotter(src, SnapshotConfig{}, nil), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var emitted atomic.Int64
	go func() {
		done <- f.Run(ctx, func(snap *models.Snapshot) error {
			emitted.Add(1)
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	src.fail.Store(false)

	deadline := time.After(time.Second)
	for emitted.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("stream never recovered after query failures")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if src.alertCalls.Load() < 2 {
		t.Error("expected failed ticks to be retried on the next tick")
	}
}

func TestFeed_NotifyPushesImmediately(t *testing.T) {
	f := New(NewSnapshotter(&fakeSource{}, SnapshotConfig{}, nil), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx, func(snap *models.Snapshot) error {
			got <- struct{}{}
			return nil
		})
	}()

	<-got // initial snapshot
	for f.Clients() == 0 {
		time.Sleep(time.Millisecond)
	}
	f.Notify()

	select {
	case <-got:
	case <-ctx.Done():
		t.Fatal("expected a snapshot right after Notify")
	}

	f.Close()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
