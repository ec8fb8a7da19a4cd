package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"authcore/internal/domain"
)

var githubScopes = []string{"read:user", "user:email"}

type GitHubProvider struct {
	conf       *oauth2.Config
	cfg        ProviderConfig
	httpClient *http.Client
}

func NewGitHubProvider(cfg ProviderConfig) *GitHubProvider {
	return &GitHubProvider{
		conf:       cfg.oauth2Config(endpoints.GitHub, githubScopes),
		cfg:        cfg,
		httpClient: cfg.httpClient(),
	}
}

func (g *GitHubProvider) Type() domain.ProviderType { return domain.ProviderGitHub }

func (g *GitHubProvider) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// apiClient returns a REST client authenticated with tok.
func (g *GitHubProvider) apiClient(ctx context.Context, tok *oauth2.Token) (*github.Client, error) {
	client := github.NewClient(g.conf.Client(ctx, tok))
	if g.cfg.APIBaseURL != "" {
		base, err := url.Parse(strings.TrimRight(g.cfg.APIBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("api base url: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

func (g *GitHubProvider) Identify(ctx context.Context, code string) (*Identity, error) {
	ctx, cancel := withClient(ctx, g.cfg.Timeout, g.httpClient)
	defer cancel()

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, providerErr(g.Type(), "token exchange", err)
	}
	client, err := g.apiClient(ctx, tok)
	if err != nil {
		return nil, providerErr(g.Type(), "client", err)
	}

	u, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, providerErr(g.Type(), "user", err)
	}
	if u.GetID() == 0 {
		return nil, providerErr(g.Type(), "user", errors.New("missing id"))
	}

	id := &Identity{
		ExternalID:  strconv.FormatInt(u.GetID(), 10),
		Email:       u.GetEmail(),
		DisplayName: firstNonEmpty(u.GetName(), u.GetLogin(), u.GetEmail()),
		AvatarURL:   u.GetAvatarURL(),
	}

	// The profile email is whatever the user made public; the emails endpoint
	// says which address is primary and whether it is verified.
	emails, _, err := client.Users.ListEmails(ctx, nil)
	if err != nil {
		return nil, providerErr(g.Type(), "user emails", err)
	}
	for _, e := range emails {
		if e.GetPrimary() {
			id.Email = e.GetEmail()
			id.EmailVerified = e.GetVerified()
			break
		}
	}
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
