package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func setupStore(t *testing.T) *repository.GormStore {
	t.Helper()
	store, err := repository.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *repository.GormStore, id string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: id + "@example.com", Name: ptr("Test " + id)}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

type fakeDispatcher struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (f *fakeDispatcher) Dispatch(a models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type countingRefresher struct{ n atomic.Int64 }

func (c *countingRefresher) Notify() { c.n.Add(1) }

type fakeWelcomer struct {
	err    error
	chatID string
}

func (f *fakeWelcomer) SendWelcome(ctx context.Context, chatID, name string) error {
	f.chatID = chatID
	return f.err
}
