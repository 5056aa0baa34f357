package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/api/idtoken"
)

// IDTokenValidator verifies a Google-signed OIDC token for audience.
type IDTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PubSubAuthConfig configures PubSubAuthMiddleware.
type PubSubAuthConfig struct {
	// SkipAuth disables the check when pushing from the local emulator.
	SkipAuth      bool
	Audience      string
	ExpectedEmail string
	// Validate defaults to idtoken.Validate.
	Validate IDTokenValidator
}

// PubSubAuthMiddleware admits only push requests signed for the configured service account.
func PubSubAuthMiddleware(cfg PubSubAuthConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	validate := cfg.Validate
	if validate == nil {
		validate = idtoken.Validate
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.SkipAuth {
				logger.Debug().Msg("Skipping Pub/Sub authentication for local environment")
				next.ServeHTTP(w, r)
				return
			}

			if cfg.Audience == "" || cfg.ExpectedEmail == "" {
				logger.Error().Msg("Pub/Sub auth middleware configured without an audience or expected email; requests will be denied")
				http.Error(w, "Configuration error: audience or email not set", http.StatusInternalServerError)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn().Msg("Missing or malformed Authorization header in Pub/Sub push request")
				http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
				return
			}

			payload, err := validate(r.Context(), token, cfg.Audience)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to validate Pub/Sub JWT")
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			email, _ := payload.Claims["email"].(string)
			if email == "" || email != cfg.ExpectedEmail {
				logger.Warn().
					Str("token_email", email).
					Str("expected_email", cfg.ExpectedEmail).
					Msg("Pub/Sub JWT email does not match expected service account")
				http.Error(w, "Forbidden: token email does not match expected service account", http.StatusForbidden)
				return
			}

			logger.Debug().Str("email", email).Str("issuer", payload.Issuer).Msg("Authenticated Pub/Sub push request")
			next.ServeHTTP(w, r)
		})
	}
}
