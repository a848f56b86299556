package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key layout. Time-ordered keys pad unix nanos to 19 digits so lexicographic
// order equals chronological order.
//
//	user:id:<id>                                  -> User
//	user:name:<username>                          -> id
//	room:<id>                                     -> ChatRoom
//	room:direct:<min>:<max>                       -> room id
//	msg:<room>:<nanos>:<id>                       -> ChatMessage
//	notif:id:<id>                                 -> Notification
//	notif:user:<recipient>:<nanos>:<id>           -> notification id
//	block:<blocker>:<blocked>                     -> BlockRelation
//	friend:id:<id>                                -> Friendship
//	friend:pair:<min>:<max>                       -> friendship id
//	friend:user:<user>:<id>                       -> friendship id
//	game:<id>                                     -> GameRoom
//	invite:id:<id>                                -> GameInvite
//	invite:notif:<notification>                   -> invite id
//	invite:pending:<sender>:<receiver>            -> invite id
//	presence:<user>                               -> Presence
//	lease:<user>:<node>                           -> PresenceLease

func userKey(id uuid.UUID) []byte    { return []byte("user:id:" + id.String()) }
func usernameKey(name string) []byte { return []byte("user:name:" + name) }
func roomKey(id uuid.UUID) []byte    { return []byte("room:" + id.String()) }

func directRoomKey(a, b uuid.UUID) []byte {
	x, y := ordered(a, b)
	return []byte("room:direct:" + x + ":" + y)
}

func messagePrefix(room uuid.UUID) []byte { return []byte("msg:" + room.String() + ":") }
func messageKey(room uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", room, at.UnixNano(), id)
}

func notificationKey(id uuid.UUID) []byte { return []byte("notif:id:" + id.String()) }
func notificationIndexPrefix(recipient uuid.UUID) []byte {
	return []byte("notif:user:" + recipient.String() + ":")
}
func notificationIndexKey(recipient uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(nil, "notif:user:%s:%019d:%s", recipient, at.UnixNano(), id)
}

func blockPrefix(blocker uuid.UUID) []byte { return []byte("block:" + blocker.String() + ":") }
func blockKey(blocker, blocked uuid.UUID) []byte {
	return []byte("block:" + blocker.String() + ":" + blocked.String())
}

func friendshipKey(id uuid.UUID) []byte { return []byte("friend:id:" + id.String()) }
func friendPairKey(a, b uuid.UUID) []byte {
	x, y := ordered(a, b)
	return []byte("friend:pair:" + x + ":" + y)
}
func friendUserPrefix(user uuid.UUID) []byte { return []byte("friend:user:" + user.String() + ":") }
func friendUserKey(user, id uuid.UUID) []byte {
	return []byte("friend:user:" + user.String() + ":" + id.String())
}

func gameRoomKey(id uuid.UUID) []byte { return []byte("game:" + id.String()) }
func inviteKey(id uuid.UUID) []byte   { return []byte("invite:id:" + id.String()) }
func inviteByNotificationKey(id uuid.UUID) []byte {
	return []byte("invite:notif:" + id.String())
}
func pendingInviteKey(sender, receiver uuid.UUID) []byte {
	return []byte("invite:pending:" + sender.String() + ":" + receiver.String())
}

func presenceKey(user uuid.UUID) []byte { return []byte("presence:" + user.String()) }
func leasePrefix(user uuid.UUID) []byte { return []byte("lease:" + user.String() + ":") }
func leaseKey(user uuid.UUID, node string) []byte {
	return append(leasePrefix(user), node...)
}

// ordered renders an unordered pair canonically.
func ordered(a, b uuid.UUID) (string, string) {
	x, y := a.String(), b.String()
	if x > y {
		return y, x
	}
	return x, y
}
