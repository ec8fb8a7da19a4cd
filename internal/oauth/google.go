package oauth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"authcore/internal/domain"
)

var googleScopes = []string{"openid", "email", "profile"}

type GoogleProvider struct {
	conf       *oauth2.Config
	cfg        ProviderConfig
	httpClient *http.Client
}

func NewGoogleProvider(cfg ProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		conf:       cfg.oauth2Config(endpoints.Google, googleScopes),
		cfg:        cfg,
		httpClient: cfg.httpClient(),
	}
}

func (g *GoogleProvider) Type() domain.ProviderType { return domain.ProviderGoogle }

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *GoogleProvider) Identify(ctx context.Context, code string) (*Identity, error) {
	ctx, cancel := withClient(ctx, g.cfg.Timeout, g.httpClient)
	defer cancel()

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, providerErr(g.Type(), "token exchange", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(g.conf.Client(ctx, tok))}
	if g.cfg.APIBaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.APIBaseURL))
	}
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, providerErr(g.Type(), "userinfo client", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, providerErr(g.Type(), "userinfo", err)
	}
	if info.Id == "" {
		return nil, providerErr(g.Type(), "userinfo", errors.New("missing subject"))
	}

	return &Identity{
		ExternalID:    info.Id,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail != nil && *info.VerifiedEmail,
		DisplayName:   firstNonEmpty(info.Name, info.GivenName, info.Email),
		AvatarURL:     info.Picture,
	}, nil
}
