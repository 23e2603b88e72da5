// Package integrations resolves per-user credentials for each connected provider.
package integrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/covalynce/internal/store"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// ErrNotConfigured means the user has not connected the provider, or the
// connection lacks something the caller needs.
var ErrNotConfigured = errors.New("integration not configured")

// MetadataJiraURL is the metadata key holding a user's JIRA base URL.
const MetadataJiraURL = "jira_url"

// Store is the persistence the adapters read from.
type Store interface {
	GetToken(ctx context.Context, userID string, provider models.Provider) (string, error)
	GetMetadata(ctx context.Context, userID string, provider models.Provider) (map[string]string, error)
}

// Adapter exposes one provider's credentials.
type Adapter interface {
	Provider() models.Provider
	FetchToken(ctx context.Context, userID string) (string, error)
	FetchMetadata(ctx context.Context, userID string) (map[string]string, error)
}

type baseAdapter struct {
	store    Store
	provider models.Provider
}

func (a baseAdapter) Provider() models.Provider {
	return a.provider
}

// FetchToken returns the user's token or ErrNotConfigured.
func (a baseAdapter) FetchToken(ctx context.Context, userID string) (string, error) {
	token, err := a.store.GetToken(ctx, userID, a.provider)
	if errors.Is(err, store.ErrNotFound) || (err == nil && token == "") {
		return "", fmt.Errorf("%s token for user %s: %w", a.provider, userID, ErrNotConfigured)
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// FetchMetadata returns the user's metadata; a missing row yields an empty map.
func (a baseAdapter) FetchMetadata(ctx context.Context, userID string) (map[string]string, error) {
	metadata, err := a.store.GetMetadata(ctx, userID, a.provider)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

// GitHubAdapter resolves GitHub credentials.
type GitHubAdapter struct {
	baseAdapter
}

// NewGitHubAdapter creates a GitHub adapter over s.
func NewGitHubAdapter(s Store) *GitHubAdapter {
	return &GitHubAdapter{baseAdapter{store: s, provider: models.ProviderGitHub}}
}

// JiraAdapter resolves JIRA credentials and the instance URL.
type JiraAdapter struct {
	baseAdapter
}

// NewJiraAdapter creates a JIRA adapter over s.
func NewJiraAdapter(s Store) *JiraAdapter {
	return &JiraAdapter{baseAdapter{store: s, provider: models.ProviderJira}}
}

// Resolve returns the token and base URL needed to talk to the user's
// JIRA instance. Either one missing yields ErrNotConfigured.
func (a *JiraAdapter) Resolve(ctx context.Context, userID string) (token string, baseURL string, err error) {
	token, err = a.FetchToken(ctx, userID)
	if err != nil {
		return "", "", err
	}

	metadata, err := a.FetchMetadata(ctx, userID)
	if err != nil {
		return "", "", err
	}

	baseURL = metadata[MetadataJiraURL]
	if baseURL == "" {
		return "", "", fmt.Errorf("jira url for user %s: %w", userID, ErrNotConfigured)
	}
	return token, baseURL, nil
}

// New returns the adapter for a provider name.
func New(s Store, provider models.Provider) (Adapter, error) {
	switch provider {
	case models.ProviderGitHub:
		return NewGitHubAdapter(s), nil
	case models.ProviderJira:
		return NewJiraAdapter(s), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
