package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom groups the members of a conversation. A direct room between two users is unique.
type ChatRoom struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	IsDirect  bool        `json:"is_direct"`
	Members   []uuid.UUID `json:"members"`
	CreatedAt time.Time   `json:"created_at"`
}

func (r *ChatRoom) HasMember(id uuid.UUID) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}

// ChatMessage is immutable once persisted.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatDelivery is the per-topic projection of a persisted message.
// IsSent is true on the sender's echo and false on the receiver's copy.
type ChatDelivery struct {
	MessageID uuid.UUID `json:"message_id"`
	RoomID    uuid.UUID `json:"room_id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	IsSent    bool      `json:"is_sent"`
}
