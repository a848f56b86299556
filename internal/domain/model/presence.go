package model

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	Online  PresenceStatus = "online"
	Offline PresenceStatus = "offline"
	InGame  PresenceStatus = "in_game"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case Online, Offline, InGame:
		return true
	}
	return false
}

// Presence is last-write-wins by UpdatedAt (unix nanos).
type Presence struct {
	UserID    uuid.UUID      `json:"user_id"`
	Status    PresenceStatus `json:"status"`
	UpdatedAt int64          `json:"updated_at"`
}

func (p *Presence) Time() time.Time { return time.Unix(0, p.UpdatedAt) }

// PresenceLease is one node's claim that it holds live sessions of a user.
// A lease not renewed within the presence TTL no longer counts.
type PresenceLease struct {
	UserID   uuid.UUID `json:"user_id"`
	Node     string    `json:"node"`
	Sessions int       `json:"sessions"`
	SeenAt   int64     `json:"seen_at"`
}

func (l *PresenceLease) Time() time.Time { return time.Unix(0, l.SeenAt) }
