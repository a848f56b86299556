package wsmarshaller

import (
	"encoding/json"
	"time"

	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// TimeLayout is the wall-clock format of created_at in socket frames.
const TimeLayout = "2006-01-02 15:04:05"

const systemSender = "System"

// WSFrame is the JSON object written to a socket. Chat sockets receive the flat
// chat fields; notification and presence frames carry the record in Payload.
type WSFrame struct {
	Type         string `json:"type"`
	Message      string `json:"message,omitempty"`
	Sender       string `json:"sender,omitempty"`
	Receiver     string `json:"receiver,omitempty"`
	RoomID       string `json:"room_id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	IsSent       *bool  `json:"is_sent,omitempty"`
	Status       string `json:"status,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	Code         string `json:"code,omitempty"`
	Payload      any    `json:"payload,omitempty"`
}

// MarshallDeliveryEvent renders ev once and caches the bytes on the event, so
// every member of the topic writes the same buffer.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	if cached, ok := ev.GetCached().([]byte); ok {
		return cached, nil
	}

	data, err := json.Marshal(BuildFrame(ev))
	if err != nil {
		return nil, err
	}

	ev.SetCached(data)
	return data, nil
}

// BuildFrame maps an event to its socket representation.
func BuildFrame(ev event.Eventer) *WSFrame {
	res := &WSFrame{Type: ev.GetKind().String()}

	switch p := ev.GetPayload().(type) {
	case *model.ChatDelivery:
		sent := p.IsSent
		res.Message = p.Body
		res.Sender = p.Sender
		res.Receiver = p.Receiver
		res.RoomID = p.RoomID.String()
		res.CreatedAt = p.CreatedAt.UTC().Format(TimeLayout)
		res.IsSent = &sent

	case *model.ConnectedPayload:
		res.Message = p.Message
		res.Sender = systemSender
		res.Status = "connected"
		res.ConnectionID = p.ConnectionID
		res.CreatedAt = time.UnixMilli(ev.GetOccurredAt()).UTC().Format(TimeLayout)

	case *model.ErrorPayload:
		res.Message = p.Message
		res.Code = p.Code

	case *model.DisconnectedPayload:
		res.Message = p.Reason
		res.Code = p.Code

	default:
		// Notifications and presence changes travel as records.
		res.Payload = p
	}
	return res
}

// ErrorFrame renders an error addressed to a single socket. It bypasses the hub.
func ErrorFrame(message, code string) []byte {
	data, _ := json.Marshal(&WSFrame{Type: event.ChatError.String(), Message: message, Code: code})
	return data
}

// DisconnectedFrame tells the client the server is ending the session.
func DisconnectedFrame(reason, code string) []byte {
	data, _ := json.Marshal(&WSFrame{
		Type:    event.Disconnected.String(),
		Message: reason,
		Sender:  systemSender,
		Status:  "disconnected",
		Code:    code,
	})
	return data
}
