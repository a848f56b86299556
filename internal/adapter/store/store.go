package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// conflictRetries bounds how often an optimistic transaction is replayed on ErrConflict.
const conflictRetries = 3

// Storer is the storage collaborator. Every callback runs inside exactly one badger
// transaction: either all of its writes commit or none do.
type Storer interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx groups the per-aggregate stores bound to one transaction.
type Tx interface {
	UserStore
	MessageStore
	NotificationStore
	BlockStore
	FriendshipStore
	GameStore
	PresenceStore
}

type UserStore interface {
	// CreateUser fails with model.ErrAlreadyExists when the username is taken.
	CreateUser(u *model.User) error
	// UpsertUser inserts or refreshes a user known from a verified token.
	UpsertUser(u *model.User) error
	GetUser(id uuid.UUID) (*model.User, error)
	GetUserByName(username string) (*model.User, error)
}

type MessageStore interface {
	// CreateRoom fails with model.ErrAlreadyExists for a second direct room between the same pair.
	CreateRoom(r *model.ChatRoom) error
	GetRoom(id uuid.UUID) (*model.ChatRoom, error)
	FindDirectRoom(a, b uuid.UUID) (*model.ChatRoom, error)
	SaveMessage(m *model.ChatMessage) error
	// ListMessages returns up to limit most recent messages, oldest first. limit <= 0 means all.
	ListMessages(roomID uuid.UUID, limit int) ([]*model.ChatMessage, error)
}

type NotificationStore interface {
	SaveNotification(n *model.Notification) error
	GetNotification(id uuid.UUID) (*model.Notification, error)
	// ListNotifications returns the recipient's notifications newest first.
	ListNotifications(recipient uuid.UUID, unreadOnly bool, limit int) ([]*model.Notification, error)
	// MarkRead flips IsRead and reports whether the record changed.
	MarkRead(id uuid.UUID) (bool, error)
}

type BlockStore interface {
	Block(rel *model.BlockRelation) error
	Unblock(blocker, blocked uuid.UUID) error
	HasBlock(blocker, blocked uuid.UUID) (bool, error)
	ListBlocked(blocker uuid.UUID) ([]*model.BlockRelation, error)
}

type FriendshipStore interface {
	SaveFriendship(f *model.Friendship) error
	GetFriendship(id uuid.UUID) (*model.Friendship, error)
	// FindFriendship looks up the single relation of an unordered pair.
	FindFriendship(a, b uuid.UUID) (*model.Friendship, error)
	DeleteFriendship(f *model.Friendship) error
	ListFriendships(user uuid.UUID) ([]*model.Friendship, error)
}

type GameStore interface {
	CreateGameRoom(r *model.GameRoom) error
	GetGameRoom(id uuid.UUID) (*model.GameRoom, error)
	SaveInvite(inv *model.GameInvite) error
	GetInvite(id uuid.UUID) (*model.GameInvite, error)
	GetInviteByNotification(notificationID uuid.UUID) (*model.GameInvite, error)
	FindPendingInvite(sender, receiver uuid.UUID) (*model.GameInvite, error)
}

type PresenceStore interface {
	// PutPresence applies p unless a newer record is stored. It reports whether p won.
	PutPresence(p *model.Presence) (bool, error)
	GetPresence(user uuid.UUID) (*model.Presence, error)
	// PutLease replaces the node's lease. Zero sessions removes it.
	PutLease(l *model.PresenceLease) error
	ListLeases(user uuid.UUID) ([]*model.PresenceLease, error)
}

// BadgerStore implements Storer on an embedded badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the database. inMemory ignores path.
func Open(path string, inMemory bool, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("STORE_TX_CONFLICT", slog.Int("attempt", attempt))
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", conflictRetries, model.ErrConflict)
}

func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// badgerTx binds every aggregate store to one badger transaction.
type badgerTx struct {
	txn *badger.Txn
}

var _ Tx = (*badgerTx)(nil)

func (t *badgerTx) get(key []byte, dst any) error {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func (t *badgerTx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *badgerTx) set(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return t.txn.Set(key, data)
}

func (t *badgerTx) getID(key []byte) (uuid.UUID, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return uuid.Nil, model.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		return id.UnmarshalBinary(val)
	})
	return id, err
}

func (t *badgerTx) setID(key []byte, id uuid.UUID) error {
	return t.txn.Set(key, id[:])
}

// scanKeys collects keys under prefix. reverse walks newest first for time-ordered keys.
func (t *badgerTx) scanKeys(prefix []byte, reverse bool, limit int) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	opts.Reverse = reverse

	it := t.txn.NewIterator(opts)
	defer it.Close()

	seek := prefix
	if reverse {
		seek = append(append([]byte{}, prefix...), 0xFF)
	}

	var keys [][]byte
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		if limit > 0 && len(keys) == limit {
			break
		}
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// scanIDs collects uuid values stored under prefix.
func (t *badgerTx) scanIDs(prefix []byte, reverse bool, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, key := range t.scanKeys(prefix, reverse, limit) {
		id, err := t.getID(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
