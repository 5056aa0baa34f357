package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/model"
	"storefront/internal/util"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

const SessionContextKey = contextKey("session")

// WithSession stores the authenticated caller in ctx.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// SessionFromContext returns the caller stored by the auth middleware, if any.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*model.Session)
	return s, ok && s != nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func sessionFromToken(token, keyMaterial string) (*model.Session, error) {
	claims, err := util.ValidateJWT(token, keyMaterial)
	if err != nil {
		return nil, err
	}
	return &model.Session{
		UserID:        claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.UserMetadata.EmailVerified,
		Role:          claims.Role,
		AccessToken:   token,
	}, nil
}

// AuthMiddleware rejects requests without a valid access token.
func AuthMiddleware(keyMaterial string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				logger.Debug().Msg("Authorization header missing")
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn().Msg("Invalid authorization header")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			session, err := sessionFromToken(token, keyMaterial)
			if err != nil {
				logger.Warn().Err(err).Msg("Invalid token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// OptionalAuthMiddleware attaches the session when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuthMiddleware(keyMaterial string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			session, err := sessionFromToken(token, keyMaterial)
			if err != nil {
				logger.Debug().Err(err).Msg("Ignoring invalid token on optional auth route")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
