package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// resolverMiddleware implements [DECORATOR_PATTERN] to add observability
// to identity resolution without touching business logic.
type resolverMiddleware struct {
	next   Resolver
	logger *slog.Logger
}

// NewResolverMiddleware creates a new logging decorator for the Resolver.
func NewResolverMiddleware(next Resolver, logger *slog.Logger) Resolver {
	return &resolverMiddleware{next: next, logger: logger}
}

func (m *resolverMiddleware) ResolvePair(ctx context.Context, sender, receiver string) (*model.User, *model.User, error) {
	start := time.Now()
	from, to, err := m.next.ResolvePair(ctx, sender, receiver)

	if err != nil {
		m.logger.Warn("IDENTITY_PAIR_FAILED",
			"err", err,
			"sender", sender,
			"receiver", receiver,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		m.logger.Debug("IDENTITY_PAIR_RESOLVED",
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return from, to, err
}

func (m *resolverMiddleware) ResolveUser(ctx context.Context, username string) (*model.User, error) {
	return m.next.ResolveUser(ctx, username)
}

func (m *resolverMiddleware) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return m.next.GetUser(ctx, id)
}

func (m *resolverMiddleware) Ensure(ctx context.Context, contact *model.AuthContact) (*model.User, error) {
	start := time.Now()
	u, err := m.next.Ensure(ctx, contact)
	if err != nil {
		var userID uuid.UUID
		if contact != nil {
			userID = contact.UserID
		}
		m.logger.Error("IDENTITY_ENSURE_FAILED",
			"err", err,
			"user_id", userID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return u, err
}
