package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// IdentityUser is an account as reported by the identity provider.
type IdentityUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	UserMetadata     struct {
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	} `json:"user_metadata"`
}

// EmailVerified reports whether the provider considers the address confirmed.
func (u *IdentityUser) EmailVerified() bool {
	return u.EmailConfirmedAt != nil || u.UserMetadata.EmailVerified
}

// AuthSession is the result of a sign in or sign up. AccessToken is empty when the
// account still has to confirm its email address.
type AuthSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         IdentityUser `json:"user"`
}

// IdentityService talks to the Supabase Auth (GoTrue) REST API.
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	// SignUp registers the account and creates its profile row.
	SignUp(ctx context.Context, email, password, name string) (*AuthSession, error)
	// GetUser fetches the current state of the account owning accessToken.
	GetUser(ctx context.Context, accessToken string) (*IdentityUser, error)
}

type identityService struct {
	baseURL  string
	anonKey  string
	client   *http.Client
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

// NewIdentityService creates an IdentityService for the project at supabaseURL.
func NewIdentityService(supabaseURL, anonKey string, profiles repository.ProfileRepository, logger zerolog.Logger) IdentityService {
	return &identityService{
		baseURL:  strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		anonKey:  anonKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		profiles: profiles,
		logger:   logger.With().Str("service", "IdentityService").Logger(),
	}
}

func (s *identityService) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	var out AuthSession
	body := map[string]string{"email": email, "password": password}
	if err := s.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *identityService) SignUp(ctx context.Context, email, password, name string) (*AuthSession, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	// With email confirmation enabled the response is the bare user, otherwise a session.
	var raw struct {
		AuthSession
		IdentityUser
	}
	if err := s.do(ctx, http.MethodPost, "/signup", "", body, &raw); err != nil {
		return nil, err
	}
	out := raw.AuthSession
	if out.User.ID == "" {
		out.User = raw.IdentityUser
	}
	if out.User.ID == "" {
		return nil, fmt.Errorf("%w: sign up returned no user", ErrIdentityUnavailable)
	}

	profile := &model.Profile{ID: out.User.ID, Email: email, Name: name, Role: model.RoleUser}
	if err := s.profiles.Create(ctx, profile); err != nil {
		s.logger.Error().Err(err).Str("user_id", out.User.ID).Msg("Failed to create profile after sign up")
		return nil, err
	}
	return &out, nil
}

func (s *identityService) GetUser(ctx context.Context, accessToken string) (*IdentityUser, error) {
	var out IdentityUser
	if err := s.do(ctx, http.MethodGet, "/user", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *identityService) do(ctx context.Context, method, path, accessToken string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating identity request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Identity provider request failed")
		return fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrIdentityUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, providerMessage(data))
	case resp.StatusCode >= 300:
		s.logger.Error().Int("status", resp.StatusCode).Str("path", path).Msg("Identity provider returned an error")
		return fmt.Errorf("%w: status %d", ErrIdentityUnavailable, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrIdentityUnavailable, err)
	}
	return nil
}

// providerMessage extracts the human readable error GoTrue puts in one of several fields.
func providerMessage(body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "request rejected"
	}
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription} {
		if m != "" {
			return m
		}
	}
	return "request rejected"
}
