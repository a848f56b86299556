package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Resolver maps usernames to users and keeps the user table in step with verified tokens.
type Resolver interface {
	// ResolvePair resolves both participants concurrently; either failing fails both.
	ResolvePair(ctx context.Context, sender, receiver string) (*model.User, *model.User, error)
	ResolveUser(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Ensure upserts the user described by a verified token.
	Ensure(ctx context.Context, contact *model.AuthContact) (*model.User, error)
}

type IdentityResolver struct {
	store store.Storer
	// byName caches username -> user. Ensure refreshes renames seen by this node;
	// ttl bounds how long a rename made elsewhere keeps resolving here.
	byName *expirable.LRU[string, *model.User]
}

// NewIdentityResolver provides a thread-safe resolver with an internal LRU cache.
// Entries expire after ttl; zero keeps them until evicted by size.
func NewIdentityResolver(s store.Storer, cacheSize int, ttl time.Duration) (*IdentityResolver, error) {
	if cacheSize <= 0 {
		return nil, fmt.Errorf("identity cache size %d: %w", cacheSize, model.ErrValidation)
	}
	return &IdentityResolver{store: s, byName: expirable.NewLRU[string, *model.User](cacheSize, nil, ttl)}, nil
}

// ResolvePair executes parallel lookups for both participants.
func (r *IdentityResolver) ResolvePair(ctx context.Context, sender, receiver string) (*model.User, *model.User, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var from, to *model.User
	g.Go(func() error {
		var err error
		from, err = r.ResolveUser(gCtx, sender)
		return err
	})
	g.Go(func() error {
		var err error
		to, err = r.ResolveUser(gCtx, receiver)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// ResolveUser applies the cache-aside strategy.
func (r *IdentityResolver) ResolveUser(ctx context.Context, username string) (*model.User, error) {
	if u, ok := r.byName.Get(username); ok {
		return u, nil
	}

	var u *model.User
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByName(username)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.byName.Add(username, u)
	return u, nil
}

func (r *IdentityResolver) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u *model.User
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(id)
		return err
	})
	return u, err
}

func (r *IdentityResolver) Ensure(ctx context.Context, contact *model.AuthContact) (*model.User, error) {
	if contact == nil || contact.UserID == uuid.Nil || contact.Username == "" {
		return nil, fmt.Errorf("incomplete identity: %w", model.ErrUnauthorized)
	}

	// [HOT_PATH] Unchanged identity: no write.
	if u, ok := r.byName.Get(contact.Username); ok && u.ID == contact.UserID && u.DisplayName == contact.DisplayName {
		return u, nil
	}

	u := contact.ToUser()
	err := r.store.Update(ctx, func(tx store.Tx) error {
		current, err := tx.GetUser(u.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
		case err != nil:
			return err
		case current.Username == u.Username && current.DisplayName == u.DisplayName:
			u = current
			return nil
		default:
			// Renamed: the old name must stop resolving.
			r.byName.Remove(current.Username)
		}
		return tx.UpsertUser(u)
	})
	if err != nil {
		return nil, err
	}

	r.byName.Add(u.Username, u)
	return u, nil
}
