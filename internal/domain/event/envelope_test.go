package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-social-service/internal/domain/model"
)

func TestEncodeDecodeNotification(t *testing.T) {
	n := &model.Notification{
		ID:          uuid.New(),
		RecipientID: uuid.New(),
		SenderID:    uuid.New(),
		Type:        model.GameReady,
		Content:     "game is ready",
		RedirectURL: "/game/x/",
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	ev := NewNotificationEvent(n)

	data, err := Encode(ev, "node-a")
	require.NoError(t, err)

	got, env, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, "node-a", env.Origin)
	require.Equal(t, ev.GetID(), got.GetID())
	require.Equal(t, NotificationCreated, got.GetKind())
	require.Equal(t, model.UserTopic(n.RecipientID), got.GetTopic())
	require.Equal(t, PriorityHigh, got.GetPriority())

	payload, ok := got.GetPayload().(*model.Notification)
	require.True(t, ok)
	require.Equal(t, n.ID, payload.ID)
	require.Equal(t, n.RedirectURL, payload.RedirectURL)
	require.True(t, n.CreatedAt.Equal(payload.CreatedAt))
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, _, err := Decode([]byte(`{"id":"1","kind":"bogus","topic":"presence","payload":{}}`))
	require.Error(t, err)

	_, _, err = Decode([]byte(`{"id":"1","kind":"presence","payload":{}}`))
	require.Error(t, err)
}

func TestSystemEventIsLocal(t *testing.T) {
	ev := NewSystemEvent(model.PresenceTopic, Connected, PriorityHigh, &model.ConnectedPayload{Ok: true})
	require.Empty(t, ev.GetRoutingKey())

	chat := NewChatEvent(model.ChatTopic("bob"), &model.ChatDelivery{CreatedAt: time.Now()})
	require.Equal(t, "im_social.v1.chat_message.chat:bob", chat.GetRoutingKey())
}

func TestCachedFrame(t *testing.T) {
	ev := NewChatEvent(model.ChatTopic("bob"), &model.ChatDelivery{})
	require.Nil(t, ev.GetCached())
	ev.SetCached([]byte("frame"))
	require.Equal(t, []byte("frame"), ev.GetCached())
}

func TestKindNames(t *testing.T) {
	for _, k := range []EventKind{Connected, Disconnected, NotificationCreated, ChatMessage, ChatError, PresenceChanged} {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok)
		require.Equal(t, k, parsed)
	}
}
