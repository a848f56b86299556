package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	FriendRequest      NotificationType = "friend_request"
	FriendAccepted     NotificationType = "friend_accepted"
	GameInviteType     NotificationType = "game_invite"
	GameReady          NotificationType = "game_ready"
	InviteRejectedType NotificationType = "invite_rejected"
)

func (t NotificationType) Valid() bool {
	switch t {
	case FriendRequest, FriendAccepted, GameInviteType, GameReady, InviteRejectedType:
		return true
	}
	return false
}

// Notification is created on a domain action and mutated only to flip IsRead.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient"`
	SenderID    uuid.UUID        `json:"sender"`
	SenderName  string           `json:"sender_name,omitempty"`
	Type        NotificationType `json:"notification_type"`
	Content     string           `json:"content"`
	RedirectURL string           `json:"redirect_url,omitempty"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
