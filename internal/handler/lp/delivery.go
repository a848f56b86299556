package lp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/infra/server/http/interceptors"
	"github.com/webitel/im-social-service/internal/domain/event"
	"github.com/webitel/im-social-service/internal/domain/registry"
	lpmarshaller "github.com/webitel/im-social-service/internal/handler/marshaller/lp"
	"github.com/webitel/im-social-service/internal/service"
)

// maxBatch caps the events returned by one poll.
const maxBatch = 16

type LPHandler struct {
	deliverer service.Deliverer
	timeout   time.Duration
	logger    *slog.Logger
}

func NewLPHandler(deliverer service.Deliverer, cfg *config.Config, logger *slog.Logger) *LPHandler {
	return &LPHandler{
		deliverer: deliverer,
		timeout:   cfg.HTTP.PollTimeout,
		logger:    logger.With(slog.String("component", "lp")),
	}
}

// Poll handles the long-polling request.
// It holds the connection until an event arrives or timeout occurs.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	contact, ok := interceptors.GetAuthContact(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// 1. Temporary Subscription.
	// The connector lives only for the duration of this HTTP request.
	conn, err := h.deliverer.Subscribe(r.Context(), contact, service.ChannelPoll, registry.ConnectMetadata{
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Warn("LP_SUBSCRIBE_FAILED", slog.Any("err", err))
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer h.deliverer.Unsubscribe(r.Context(), conn)

	var events []event.Eventer

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	// 2. Wait for data or timeout.
	select {
	case <-r.Context().Done():
		// Client disconnected.
		return

	case <-conn.Done():
		w.WriteHeader(http.StatusServiceUnavailable)
		return

	case <-timer.C:
		w.WriteHeader(http.StatusNoContent)
		return

	case ev := <-conn.Recv():
		events = append(events, ev)

		// Drain whatever else is already queued to batch it into this response.
	drainLoop:
		for len(events) < maxBatch {
			select {
			case next := <-conn.Recv():
				events = append(events, next)
			default:
				break drainLoop
			}
		}
	}

	// 3. Final transmission.
	data, err := lpmarshaller.MarshallEvents(events)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
