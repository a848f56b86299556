package lpmarshaller

import (
	"encoding/json"

	"github.com/webitel/im-social-service/internal/domain/event"
	wsmarshaller "github.com/webitel/im-social-service/internal/handler/marshaller/ws"
)

// LPEvent represents a single event structured for long-polling consumers.
type LPEvent struct {
	ID         string `json:"id"`
	OccurredAt int64  `json:"occurred_at"`
	*wsmarshaller.WSFrame
}

// Response defines the top-level JSON array to support event batching.
type Response struct {
	Events []LPEvent `json:"events"`
}

// MarshallEvents converts a slice of domain events into a single JSON batch.
// Each entry has the same shape as the corresponding socket frame.
func MarshallEvents(events []event.Eventer) ([]byte, error) {
	res := Response{
		Events: make([]LPEvent, 0, len(events)),
	}

	for _, ev := range events {
		res.Events = append(res.Events, LPEvent{
			ID:         ev.GetID(),
			OccurredAt: ev.GetOccurredAt(),
			WSFrame:    wsmarshaller.BuildFrame(ev),
		})
	}

	return json.Marshal(res)
}
