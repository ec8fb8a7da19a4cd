// Package oauth talks to external identity providers: it builds consent
// URLs, exchanges authorization codes and normalizes the provider profile.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"authcore/internal/domain"
)

// Identity is a provider profile reduced to what account resolution needs.
type Identity struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
}

type Provider interface {
	Type() domain.ProviderType
	AuthCodeURL(state string) string
	// Identify exchanges code server-side and fetches the caller's profile.
	Identify(ctx context.Context, code string) (*Identity, error)
}

// ProviderConfig holds client credentials. AuthURL, TokenURL and APIBaseURL
// override the provider defaults and are only set against test servers.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL    string
	TokenURL   string
	APIBaseURL string

	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c ProviderConfig) enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

func (c ProviderConfig) oauth2Config(def oauth2.Endpoint, scopes []string) *oauth2.Config {
	ep := def
	if c.AuthURL != "" {
		ep.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		ep.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint:     ep,
	}
}

func (c ProviderConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// withClient bounds ctx by the configured timeout and installs the HTTP
// client used by golang.org/x/oauth2 for the token exchange.
func withClient(ctx context.Context, timeout time.Duration, client *http.Client) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func providerErr(p domain.ProviderType, step string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", domain.ErrProviderFailure, p, step, err)
}

// Registry resolves configured providers by type.
type Registry struct {
	providers map[domain.ProviderType]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.ProviderType]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

// NewRegistryFromConfig builds a provider for every credential set present.
func NewRegistryFromConfig(google, github ProviderConfig) *Registry {
	var ps []Provider
	if google.enabled() {
		ps = append(ps, NewGoogleProvider(google))
	}
	if github.enabled() {
		ps = append(ps, NewGitHubProvider(github))
	}
	return NewRegistry(ps...)
}

func (r *Registry) Get(t domain.ProviderType) (Provider, bool) {
	p, ok := r.providers[t]
	return p, ok
}

func (r *Registry) Types() []domain.ProviderType {
	out := make([]domain.ProviderType, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewState returns an unguessable value for the OAuth state parameter.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
