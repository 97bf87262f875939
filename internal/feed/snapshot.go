package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

const snapshotKey = "snapshot"

// Source is the read side of the store used to build snapshots.
type Source interface {
	ListAlerts(ctx context.Context, opts repository.AlertFilter) ([]models.Alert, error)
	ListUsers(ctx context.Context, opts repository.UserListOptions) ([]models.User, error)
}

type SnapshotConfig struct {
	AlertLimit int
	// CacheTTL shares one snapshot between clients for this long. Zero
	// disables sharing and every call queries the store.
	CacheTTL time.Duration
}

type Snapshotter struct {
	src        Source
	alertLimit int
	cache      *gocache.Cache
	fill       sync.Mutex
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewSnapshotter(src Source, cfg SnapshotConfig, m *metrics.Metrics) *Snapshotter {
	if cfg.AlertLimit <= 0 {
		cfg.AlertLimit = 10
	}
	s := &Snapshotter{
		src:        src,
		alertLimit: cfg.AlertLimit,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if cfg.CacheTTL > 0 {
		// A single key is overwritten on refill, so no janitor is needed.
		s.cache = gocache.New(cfg.CacheTTL, 0)
	}
	return s
}

// Snapshot returns the newest unresolved alerts with their owners and all
// users with their latest location.
func (s *Snapshotter) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if s.cache == nil {
		return s.build(ctx)
	}

	if v, ok := s.cache.Get(snapshotKey); ok {
		return v.(*models.Snapshot), nil
	}

	// One client refills while the others wait for its result.
	s.fill.Lock()
	defer s.fill.Unlock()
	if v, ok := s.cache.Get(snapshotKey); ok {
		return v.(*models.Snapshot), nil
	}

	snap, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(snapshotKey, snap, gocache.DefaultExpiration)
	return snap, nil
}

// Invalidate drops the shared snapshot so the next read rebuilds it.
func (s *Snapshotter) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(snapshotKey)
	}
}

func (s *Snapshotter) build(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSnapshot(time.Since(start)) }()

	unresolved := false
	alerts, err := s.src.ListAlerts(ctx, repository.AlertFilter{IsResolved: &unresolved, Limit: s.alertLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for snapshot: %w", err)
	}

	users, err := s.src.ListUsers(ctx, repository.UserListOptions{WithLatestLocation: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load users for snapshot: %w", err)
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}
	if users == nil {
		users = []models.User{}
	}
	return &models.Snapshot{Alerts: alerts, Users: users, Timestamp: s.now()}, nil
}
