package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretStore reads secret values by name.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}

type secretManagerStore struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerStore opens a Secret Manager client for the configured project.
// Secret Manager requires a real GCP project even for local development.
func NewSecretManagerStore(ctx context.Context, cfg *config.Config) (SecretStore, func() error, error) {
	projectID := cfg.GetGCPProjectID()
	if projectID == "" {
		return nil, nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerStore{client: client, projectID: projectID}, client.Close, nil
}

func (s *secretManagerStore) Get(ctx context.Context, name string) (string, error) {
	resourceName := name
	if !strings.HasPrefix(name, "projects/") {
		resourceName = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	}
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

// ResolveSecret prefers a value set directly in the environment and otherwise reads
// secretName from the store. Both empty yields an empty value.
func ResolveSecret(ctx context.Context, store SecretStore, value, secretName string) (string, error) {
	if value != "" || secretName == "" {
		return value, nil
	}
	if store == nil {
		return "", fmt.Errorf("secret %s requested but no secret store is configured", secretName)
	}
	return store.Get(ctx, secretName)
}
