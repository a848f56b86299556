package event

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/im-social-service/internal/domain/model"
)

// Envelope is the broker wire format of an exported event.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Topic      model.Topic     `json:"topic"`
	Priority   EventPriority   `json:"priority"`
	OccurredAt int64           `json:"occurred_at"`
	Origin     string          `json:"origin"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode renders ev into its broker representation. origin identifies the publishing node.
func Encode(ev Eventer, origin string) ([]byte, error) {
	payload, err := json.Marshal(ev.GetPayload())
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	return json.Marshal(Envelope{
		ID:         ev.GetID(),
		Kind:       ev.GetKind().String(),
		Topic:      ev.GetTopic(),
		Priority:   ev.GetPriority(),
		OccurredAt: ev.GetOccurredAt(),
		Origin:     origin,
		Payload:    payload,
	})
}

// Decode restores an event from its broker representation, typing the payload by kind.
func Decode(data []byte) (*Event, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("decode envelope: %w", err)
	}

	kind, ok := ParseKind(env.Kind)
	if !ok {
		return nil, &env, fmt.Errorf("unknown event kind %q", env.Kind)
	}
	if env.Topic == "" {
		return nil, &env, fmt.Errorf("event %s has no topic", env.ID)
	}

	var payload any
	switch kind {
	case NotificationCreated:
		payload = new(model.Notification)
	case ChatMessage:
		payload = new(model.ChatDelivery)
	case PresenceChanged:
		payload = new(model.Presence)
	case ChatError:
		payload = new(model.ErrorPayload)
	case Connected:
		payload = new(model.ConnectedPayload)
	case Disconnected:
		payload = new(model.DisconnectedPayload)
	}

	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, &env, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}

	return &Event{
		id:         env.ID,
		kind:       kind,
		topic:      env.Topic,
		priority:   env.Priority,
		occurredAt: env.OccurredAt,
		payload:    payload,
	}, &env, nil
}
