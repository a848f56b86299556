package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// recordingBus captures published events in order.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Eventer
	onPub  func(ev event.Eventer)
}

func (b *recordingBus) Publish(_ context.Context, ev event.Eventer) {
	if b.onPub != nil {
		b.onPub(ev)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) Events() []event.Eventer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Eventer(nil), b.events...)
}

func (b *recordingBus) Notifications() []*model.Notification {
	var out []*model.Notification
	for _, ev := range b.Events() {
		if n, ok := ev.GetPayload().(*model.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func (b *recordingBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func newTestStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	s, err := store.Open("", true, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s store.Storer, username string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New(), Username: username, DisplayName: username, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(u)
	}))
	return u
}

func seedBlock(t *testing.T, s store.Storer, blocker, blocked uuid.UUID) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Block(&model.BlockRelation{BlockerID: blocker, BlockedID: blocked})
	}))
}
