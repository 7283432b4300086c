package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/middleware"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/token"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityHandlerFunc is a handler that receives the verified caller explicitly
type IdentityHandlerFunc func(w http.ResponseWriter, r *http.Request, identity model.Identity)

// Guard authenticates requests from their bearer token. It never reads the data
// store; the token alone establishes the identity.
type Guard struct {
	codec *token.Codec
}

// NewGuard creates a Guard that verifies tokens with codec
func NewGuard(codec *token.Codec) *Guard {
	return &Guard{codec: codec}
}

// Require rejects requests without a valid bearer token and passes the identity to next
func (g *Guard) Require(next IdentityHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			apierr.WriteError(w, apierr.NewUnauthorizedError(apierr.MessageNoAuthHeader))
			return
		}

		identity, err := g.codec.Verify(raw)
		if err != nil {
			apierr.WriteError(w, apierr.NewUnauthorizedError(apierr.MessageInvalidToken))
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		middleware.Annotate(ctx, slog.String("user_id", string(identity.SubjectID)))

		next(w, r.WithContext(ctx), identity)
	})
}

// RequireRole wraps next so it only runs for identities holding role
func RequireRole(role model.Role, next IdentityHandlerFunc) IdentityHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, identity model.Identity) {
		if identity.Role != role {
			apierr.WriteError(w, apierr.NewForbiddenError(apierr.MessageAdminRequired))
			return
		}
		next(w, r, identity)
	}
}

// extractToken returns the second field of the Authorization header
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, raw, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// IdentityFrom returns the identity placed in ctx by Guard.Require
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}
