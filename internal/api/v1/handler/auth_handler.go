package handler

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/api/v1/dto"
	"storefront/internal/api/v1/operation"
	"storefront/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// AuthHandler implements Huma-based sign in and session operations
type AuthHandler struct {
	identity service.IdentityService
	logger   zerolog.Logger
}

func NewAuthHandler(identity service.IdentityService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		logger:   logger,
	}
}

func toAuthSessionDTO(s *service.AuthSession) dto.AuthSessionDTO {
	return dto.AuthSessionDTO{
		AccessToken:   s.AccessToken,
		RefreshToken:  s.RefreshToken,
		ExpiresIn:     s.ExpiresIn,
		TokenType:     s.TokenType,
		UserID:        s.User.ID,
		Email:         s.User.Email,
		EmailVerified: s.User.EmailVerified(),
	}
}

func identityError(err error, action string) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return huma.Error401Unauthorized(strings.TrimPrefix(err.Error(), service.ErrInvalidCredentials.Error()+": "))
	case errors.Is(err, service.ErrIdentityUnavailable):
		return huma.Error503ServiceUnavailable("Identity provider unavailable")
	default:
		return huma.Error500InternalServerError("Failed to "+action, err)
	}
}

// SignIn exchanges email and password for a session
func (h *AuthHandler) SignIn(ctx context.Context, input *operation.SignInInput) (*operation.AuthSessionOutput, error) {
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}
	session, err := h.identity.SignIn(ctx, strings.TrimSpace(input.Body.Email), input.Body.Password)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Sign in failed")
		return nil, identityError(err, "sign in")
	}
	return &operation.AuthSessionOutput{Body: toAuthSessionDTO(session)}, nil
}

// SignUp registers an account and creates its profile
func (h *AuthHandler) SignUp(ctx context.Context, input *operation.SignUpInput) (*operation.AuthSessionOutput, error) {
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}
	session, err := h.identity.SignUp(ctx, strings.TrimSpace(input.Body.Email), input.Body.Password, strings.TrimSpace(input.Body.Name))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Sign up failed")
		if errors.Is(err, service.ErrInvalidCredentials) {
			return nil, huma.Error400BadRequest(strings.TrimPrefix(err.Error(), service.ErrInvalidCredentials.Error()+": "))
		}
		return nil, identityError(err, "sign up")
	}
	return &operation.AuthSessionOutput{Body: toAuthSessionDTO(session)}, nil
}

// CurrentSession reports the caller, with the verification state refreshed from the provider
func (h *AuthHandler) CurrentSession(ctx context.Context, input *operation.GetSessionInput) (*operation.GetSessionOutput, error) {
	session, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out := dto.SessionDTO{
		UserID:        session.UserID,
		Email:         session.Email,
		EmailVerified: session.EmailVerified,
		Role:          session.Role,
	}
	user, err := h.identity.GetUser(ctx, session.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return nil, huma.Error401Unauthorized("Session expired")
		}
		// The token was already verified locally; fall back to its claims.
		h.logger.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to refresh session from identity provider")
		return &operation.GetSessionOutput{Body: out}, nil
	}
	out.Email = user.Email
	out.Name = user.UserMetadata.Name
	out.EmailVerified = user.EmailVerified()
	return &operation.GetSessionOutput{Body: out}, nil
}
