package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// AuthContact is the identity extracted from a verified bearer token.
type AuthContact struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
}

func (a *AuthContact) ToUser() *User {
	return &User{
		ID:          a.UserID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
	}
}
