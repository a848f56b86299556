package amqp

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/im-social-service/internal/domain/event"
)

// ErrMalformedEvent marks a message that can never be delivered. Such messages
// go to the poison topic instead of being retried.
var ErrMalformedEvent = errors.New("malformed event")

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to the local hub, handling decoding, locality and fan-out.
func Bind(h *EventHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// [DECODING]
		ev, env, err := event.Decode(msg.Payload)
		if err != nil {
			return fmt.Errorf("%w: msg %s: %w", ErrMalformedEvent, msg.UUID, err)
		}

		// [LOCALITY_FILTER]
		// Every node receives every event; only nodes holding members of the topic deliver.
		if !h.hub.IsSubscribed(ev.GetTopic()) {
			return nil // ACK: nobody here.
		}

		// [LOCAL_FAN_OUT]
		delivered := h.hub.Broadcast(ev)
		h.logger.Debug("EVENT_DELIVERED",
			"event_id", ev.GetID(),
			"kind", env.Kind,
			"topic", ev.GetTopic(),
			"origin", env.Origin,
			"members", delivered,
		)
		return nil
	}
}

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformedEvent)
}
