package model

import (
	"strings"

	"github.com/google/uuid"
)

// Topic is the logical address sessions subscribe to and events are published against.
// Topics have no lifecycle of their own; they exist as registry keys.
type Topic string

const (
	// PresenceTopic carries status changes to notification sockets.
	PresenceTopic Topic = "presence"
	// ActiveUsersTopic is joined by every chat socket.
	ActiveUsersTopic Topic = "active_users"

	userTopicPrefix = "user:"
	chatTopicPrefix = "chat:"
)

// UserTopic is the personal notification topic of a user.
func UserTopic(userID uuid.UUID) Topic {
	return Topic(userTopicPrefix + userID.String())
}

// ChatTopic is the chat inbox of a user, keyed by username.
func ChatTopic(username string) Topic {
	return Topic(chatTopicPrefix + username)
}

func (t Topic) String() string { return string(t) }

// IsPersonal reports whether the topic addresses exactly one user.
func (t Topic) IsPersonal() bool {
	return strings.HasPrefix(string(t), userTopicPrefix) || strings.HasPrefix(string(t), chatTopicPrefix)
}
