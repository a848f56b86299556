package interceptors

import (
	"context"
	"net/http"
	"strings"

	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/service"
)

type contextKey string

const (
	// AuthContextKey is the key used to store/retrieve AuthContact from context
	AuthContextKey contextKey = "auth_contact"

	// tokenQueryParam carries the token for browser sockets, which cannot set headers.
	tokenQueryParam = "token"
)

// NewAuthMiddleware validates identity before the request reaches a handler.
// Accepts "Authorization: Bearer <jwt>" or ?token=<jwt>.
func NewAuthMiddleware(auther service.Auther, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH]
			auth, err := auther.Inspect(extractToken(r))
			if err != nil {
				onError(w, r, err)
				return
			}

			// [ENRICHMENT] Inject the identity into the context for downstream handlers
			next.ServeHTTP(w, r.WithContext(WithAuthContact(r.Context(), auth)))
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get(tokenQueryParam)
}

// WithAuthContact stores the identity in ctx.
func WithAuthContact(ctx context.Context, auth *model.AuthContact) context.Context {
	return context.WithValue(ctx, AuthContextKey, auth)
}

// GetAuthContact is a helper to extract the identity from context safely.
func GetAuthContact(ctx context.Context) (*model.AuthContact, bool) {
	auth, ok := ctx.Value(AuthContextKey).(*model.AuthContact)
	return auth, ok
}
