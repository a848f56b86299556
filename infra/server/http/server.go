package httpsrv

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/infra/server/http/interceptors"
	httphandler "github.com/webitel/im-social-service/internal/handler/http"
	"github.com/webitel/im-social-service/internal/handler/ws"
	"github.com/webitel/im-social-service/internal/service"
)

// NewRouter assembles every HTTP route of the service.
func NewRouter(logger *slog.Logger, auther service.Auther, api *httphandler.Handler, wsh *ws.WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/debug/hub", api.HubStats)

	onAuthError := func(w http.ResponseWriter, r *http.Request, err error) {
		httphandler.WriteError(logger, w, r, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(interceptors.NewAuthMiddleware(auther, onAuthError))

		r.Get("/ws/notifications", wsh.Notifications)
		r.Get("/ws/chat/{username}", wsh.Chat)
		r.Route("/api", api.Routes)
	})

	return r
}

// [LOGGING_MIDDLEWARE]
// One line per request with status and latency.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
		},
		logger: logger,
	}
}

// Start binds the listener synchronously so that a busy port fails the app start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVE_FAILED", slog.Any("err", err))
		}
	}()

	s.logger.Info("HTTP_SERVER_STARTED", slog.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
