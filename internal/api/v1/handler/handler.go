package handler

import (
	"context"
	"errors"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Helper to extract the session from context (injected by auth middleware)
func getSessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := middleware.SessionFromContext(ctx)
	if !ok || session.UserID == "" {
		return nil, huma.Error401Unauthorized("User not found in context")
	}
	return session, nil
}

// validateBody runs the struct's validate tags and reports the first failure as a 400.
func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return huma.Error400BadRequest("Invalid " + fe.Field() + ": failed " + fe.Tag() + " check")
	}
	return huma.Error400BadRequest("Invalid request body", err)
}
