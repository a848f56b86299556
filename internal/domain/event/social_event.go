package event

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

var (
	_ Eventer    = (*Event)(nil)
	_ Exportable = (*Event)(nil)
)

// Event is the single envelope type carried by the Hub.
//
// [ROUTING]
// Topic is the logical address (user:<id>, chat:<username>, presence, active_users).
// Every node that holds a local member of Topic delivers it; others drop it.
type Event struct {
	id         string
	kind       EventKind
	topic      model.Topic
	priority   EventPriority
	occurredAt int64
	payload    any
	local      bool

	// [CACHE] Serialized frame shared between the sessions of the topic.
	cached atomic.Pointer[cacheBox]
}

type cacheBox struct{ v any }

func (e *Event) GetID() string              { return e.id }
func (e *Event) GetKind() EventKind         { return e.kind }
func (e *Event) GetTopic() model.Topic      { return e.topic }
func (e *Event) GetPriority() EventPriority { return e.priority }
func (e *Event) GetOccurredAt() int64       { return e.occurredAt }
func (e *Event) GetPayload() any            { return e.payload }

func (e *Event) GetCached() any {
	if b := e.cached.Load(); b != nil {
		return b.v
	}
	return nil
}

func (e *Event) SetCached(v any) { e.cached.Store(&cacheBox{v: v}) }

// GetRoutingKey returns the broker routing key.
// [PATTERN] im_social.v1.{kind}.{topic}
func (e *Event) GetRoutingKey() string {
	if e.local {
		return ""
	}
	return "im_social.v1." + e.kind.String() + "." + e.topic.String()
}

// NewNotificationEvent wraps a persisted notification for its recipient's personal topic.
func NewNotificationEvent(n *model.Notification) *Event {
	return &Event{
		id:         uuid.NewString(),
		kind:       NotificationCreated,
		topic:      model.UserTopic(n.RecipientID),
		priority:   PriorityHigh,
		occurredAt: n.CreatedAt.UnixMilli(),
		payload:    n,
	}
}

// NewChatEvent wraps one projection of a chat message. xid keeps chat event IDs sortable.
func NewChatEvent(topic model.Topic, d *model.ChatDelivery) *Event {
	return &Event{
		id:         xid.New().String(),
		kind:       ChatMessage,
		topic:      topic,
		priority:   PriorityHigh,
		occurredAt: d.CreatedAt.UnixMilli(),
		payload:    d,
	}
}

// NewPresenceEvent announces a status change on the given broadcast topic.
func NewPresenceEvent(topic model.Topic, p *model.Presence) *Event {
	return &Event{
		id:         uuid.NewString(),
		kind:       PresenceChanged,
		topic:      topic,
		priority:   PriorityLow,
		occurredAt: time.Unix(0, p.UpdatedAt).UnixMilli(),
		payload:    p,
	}
}

// NewSystemEvent creates a node-local signal. It is never exported to the broker.
func NewSystemEvent(topic model.Topic, kind EventKind, priority EventPriority, payload any) *Event {
	return &Event{
		id:         uuid.NewString(),
		kind:       kind,
		topic:      topic,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		payload:    payload,
		local:      true,
	}
}
