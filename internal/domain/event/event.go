package event

import "github.com/webitel/im-social-service/internal/domain/model"

type EventKind int16

const (
	Connected           EventKind = iota + 1 // [SYSTEM]
	Disconnected                             // [SYSTEM]
	NotificationCreated                      // [BUSINESS]
	ChatMessage                              // [BUSINESS]
	ChatError                                // [SYSTEM] addressed to one connection only
	PresenceChanged                          // [BUSINESS]
)

var kindNames = map[EventKind]string{
	Connected:           "connection",
	Disconnected:        "disconnected",
	NotificationCreated: "notification",
	ChatMessage:         "chat_message",
	ChatError:           "error",
	PresenceChanged:     "presence",
}

// String returns the wire name of the kind, used as the frame "type".
func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind is the inverse of String.
func ParseKind(s string) (EventKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetTopic() model.Topic
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	// GetCached returns the transport frame rendered by the first session that
	// serialized this event. Safe for concurrent use by write pumps.
	GetCached() any
	SetCached(any)
}

// Exportable defines an event that should be re-published to the message bus.
type Exportable interface {
	// We return the key only if the event is ready to be exported.
	// If it returns an empty string, the event stays on the local node.
	GetRoutingKey() string
}
