package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func TestPresenceLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	bus := &recordingBus{}
	svc := NewPresenceService(s, bus, slog.Default())
	ctx := context.Background()
	user := uuid.New()
	now := time.Now()

	_, applied, err := svc.SetStatus(ctx, user, model.InGame, now)
	require.NoError(t, err)
	require.True(t, applied)

	// A delayed offline from a closing socket must not clobber the newer status.
	stored, applied, err := svc.SetStatus(ctx, user, model.Offline, now.Add(-time.Second))
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, model.InGame, stored.Status)

	got, err := svc.GetStatus(ctx, user)
	require.NoError(t, err)
	require.Equal(t, model.InGame, got.Status)
	require.Equal(t, now.UnixNano(), got.UpdatedAt)
}

func TestPresencePublishesOnlyChanges(t *testing.T) {
	s := newTestStore(t)
	bus := &recordingBus{}
	svc := NewPresenceService(s, bus, slog.Default())
	ctx := context.Background()
	user := uuid.New()
	now := time.Now()

	_, _, err := svc.SetStatus(ctx, user, model.Online, now)
	require.NoError(t, err)

	events := bus.Events()
	require.Len(t, events, 2)
	require.Equal(t, model.PresenceTopic, events[0].GetTopic())
	require.Equal(t, model.ActiveUsersTopic, events[1].GetTopic())

	// Heartbeat with the same status.
	_, applied, err := svc.SetStatus(ctx, user, model.Online, now.Add(time.Second))
	require.NoError(t, err)
	require.True(t, applied)
	require.Len(t, bus.Events(), 2)

	_, _, err = svc.SetStatus(ctx, user, model.Offline, now.Add(2*time.Second))
	require.NoError(t, err)
	require.Len(t, bus.Events(), 4)
}

func TestPresenceDefaultsAndValidation(t *testing.T) {
	svc := NewPresenceService(newTestStore(t), &recordingBus{}, slog.Default())
	ctx := context.Background()

	got, err := svc.GetStatus(ctx, uuid.New())
	require.NoError(t, err)
	require.Equal(t, model.Offline, got.Status)

	_, _, err = svc.SetStatus(ctx, uuid.New(), "away", time.Now())
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestPresenceExpiresWithoutHeartbeat(t *testing.T) {
	bus := &recordingBus{}
	svc := NewPresenceService(newTestStore(t), bus, slog.Default(), WithPresenceTTL(time.Minute))
	ctx := context.Background()
	stale, fresh := uuid.New(), uuid.New()

	_, _, err := svc.SetStatus(ctx, stale, model.Online, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	_, _, err = svc.SetStatus(ctx, fresh, model.InGame, time.Now())
	require.NoError(t, err)

	got, err := svc.GetStatus(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, model.Offline, got.Status)

	got, err = svc.GetStatus(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, model.InGame, got.Status)

	// Readers saw offline, so coming back is a change worth announcing.
	bus.Reset()
	touched, err := svc.Touch(ctx, stale, time.Now())
	require.NoError(t, err)
	require.Equal(t, model.Online, touched.Status)
	require.Len(t, bus.Events(), 2)

	got, err = svc.GetStatus(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, model.Online, got.Status)
}

func TestPresenceTouchKeepsStatus(t *testing.T) {
	bus := &recordingBus{}
	svc := NewPresenceService(newTestStore(t), bus, slog.Default())
	ctx := context.Background()
	user := uuid.New()
	now := time.Now()

	_, _, err := svc.SetStatus(ctx, user, model.InGame, now)
	require.NoError(t, err)
	bus.Reset()

	p, err := svc.Touch(ctx, user, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, model.InGame, p.Status)
	require.Equal(t, now.Add(time.Second).UnixNano(), p.UpdatedAt)
	require.Empty(t, bus.Events())

	// An older heartbeat loses like any other write.
	p, err = svc.Touch(ctx, user, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Second).UnixNano(), p.UpdatedAt)
}
