package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/adapter/store"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/model"
)

type PresenceTracker interface {
	// SetStatus is last-write-wins on at: an older write than the stored one is
	// discarded and reported as not applied.
	SetStatus(ctx context.Context, user uuid.UUID, status model.PresenceStatus, at time.Time) (*model.Presence, bool, error)
	// GetStatus reports offline for users never seen and for statuses not
	// refreshed within the TTL.
	GetStatus(ctx context.Context, user uuid.UUID) (*model.Presence, error)
	// Touch refreshes the stored status at at. A missing, offline or expired
	// status becomes online; any other status is kept.
	Touch(ctx context.Context, user uuid.UUID, at time.Time) (*model.Presence, error)
	// Track records how many presence-tracking sessions of user node holds and
	// returns the total across every node with a live lease.
	Track(ctx context.Context, user uuid.UUID, node string, sessions int, at time.Time) (int, error)
}

type PresenceOption func(*PresenceService)

// WithPresenceTTL expires statuses and node leases not refreshed within ttl.
// Zero keeps them forever.
func WithPresenceTTL(ttl time.Duration) PresenceOption {
	return func(s *PresenceService) { s.ttl = ttl }
}

type PresenceService struct {
	store  store.Storer
	bus    Publisher
	ttl    time.Duration
	logger *slog.Logger
}

func NewPresenceService(s store.Storer, bus Publisher, logger *slog.Logger, opts ...PresenceOption) *PresenceService {
	svc := &PresenceService{store: s, bus: bus, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *PresenceService) SetStatus(ctx context.Context, user uuid.UUID, status model.PresenceStatus, at time.Time) (*model.Presence, bool, error) {
	if !status.Valid() {
		return nil, false, fmt.Errorf("presence status %q: %w", status, model.ErrValidation)
	}

	p, before, applied, err := s.write(ctx, user, at, func(*model.Presence) model.PresenceStatus { return status })
	if err != nil {
		return nil, false, err
	}

	if !applied {
		s.logger.Debug("PRESENCE_STALE_WRITE",
			slog.String("user_id", user.String()),
			slog.String("status", string(status)),
		)
		stored, err := s.GetStatus(ctx, user)
		return stored, false, err
	}

	s.publishChange(ctx, before, p)
	return p, true, nil
}

func (s *PresenceService) Touch(ctx context.Context, user uuid.UUID, at time.Time) (*model.Presence, error) {
	p, before, applied, err := s.write(ctx, user, at, func(current *model.Presence) model.PresenceStatus {
		if current == nil || current.Status == model.Offline {
			return model.Online
		}
		return current.Status
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.GetStatus(ctx, user)
	}

	s.publishChange(ctx, before, p)
	return p, nil
}

// write runs one LWW update. before is the status readers saw at at, with expiry
// applied; pick receives it and chooses the status to store.
func (s *PresenceService) write(ctx context.Context, user uuid.UUID, at time.Time, pick func(current *model.Presence) model.PresenceStatus) (*model.Presence, *model.Presence, bool, error) {
	var (
		p       *model.Presence
		before  *model.Presence
		applied bool
	)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		current, err := tx.GetPresence(user)
		switch {
		case errors.Is(err, model.ErrNotFound):
			before = nil
		case err != nil:
			return err
		default:
			before = s.effective(current, at)
		}

		p = &model.Presence{UserID: user, Status: pick(before), UpdatedAt: at.UnixNano()}
		applied, err = tx.PutPresence(p)
		return err
	})
	return p, before, applied, err
}

// publishChange skips refreshes of the same status.
func (s *PresenceService) publishChange(ctx context.Context, before, p *model.Presence) {
	if before != nil && before.Status == p.Status {
		return
	}
	s.bus.Publish(ctx, event.NewPresenceEvent(model.PresenceTopic, p))
	s.bus.Publish(ctx, event.NewPresenceEvent(model.ActiveUsersTopic, p))
}

func (s *PresenceService) GetStatus(ctx context.Context, user uuid.UUID) (*model.Presence, error) {
	var p *model.Presence
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetPresence(user)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return &model.Presence{UserID: user, Status: model.Offline}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.effective(p, time.Now()), nil
}

func (s *PresenceService) Track(ctx context.Context, user uuid.UUID, node string, sessions int, at time.Time) (int, error) {
	var live int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		live = 0
		err := tx.PutLease(&model.PresenceLease{UserID: user, Node: node, Sessions: sessions, SeenAt: at.UnixNano()})
		if err != nil {
			return err
		}

		leases, err := tx.ListLeases(user)
		if err != nil {
			return err
		}
		for _, l := range leases {
			if s.expired(l.Time(), at) {
				// A node that stopped renewing has crashed or lost the store.
				s.logger.Debug("PRESENCE_LEASE_EXPIRED", slog.String("user_id", user.String()), slog.String("node", l.Node))
				l.Sessions = 0
				if err := tx.PutLease(l); err != nil {
					return err
				}
				continue
			}
			live += l.Sessions
		}
		return nil
	})
	return live, err
}

// effective reports an expired non-offline status as offline.
func (s *PresenceService) effective(p *model.Presence, now time.Time) *model.Presence {
	if p.Status == model.Offline || !s.expired(p.Time(), now) {
		return p
	}
	return &model.Presence{UserID: p.UserID, Status: model.Offline, UpdatedAt: p.UpdatedAt}
}

func (s *PresenceService) expired(seen, now time.Time) bool {
	return s.ttl > 0 && now.Sub(seen) > s.ttl
}
