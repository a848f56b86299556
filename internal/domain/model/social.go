package model

import (
	"time"

	"github.com/google/uuid"
)

// BlockRelation blocks delivery in both directions regardless of who initiated it.
type BlockRelation struct {
	BlockerID uuid.UUID `json:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship exists at most once per unordered pair of users.
type Friendship struct {
	ID         uuid.UUID        `json:"id"`
	SenderID   uuid.UUID        `json:"sender_id"`
	ReceiverID uuid.UUID        `json:"receiver_id"`
	Status     FriendshipStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Other returns the participant that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

type GameInvite struct {
	ID             uuid.UUID    `json:"id"`
	SenderID       uuid.UUID    `json:"sender_id"`
	ReceiverID     uuid.UUID    `json:"receiver_id"`
	Status         InviteStatus `json:"status"`
	NotificationID uuid.UUID    `json:"notification_id"`
	GameRoomID     uuid.UUID    `json:"game_room_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
	GameAbandoned GameStatus = "abandoned"
)

type GameRoom struct {
	ID        uuid.UUID  `json:"id"`
	Player1   uuid.UUID  `json:"player1"`
	Player2   uuid.UUID  `json:"player2"`
	Status    GameStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// GameRedirect is the client route of a game room.
func GameRedirect(roomID uuid.UUID) string {
	return "/game/" + roomID.String() + "/"
}
