package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"authcore/internal/domain"
	"authcore/internal/events"
	"authcore/internal/oauth"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

type OAuthServiceImpl struct {
	store       *store.Store
	providers   *oauth.Registry
	codes       service.AuthCodeService
	events      events.Publisher
	callbackURL string
	now         func() time.Time
	log         *slog.Logger
}

func NewOAuthServiceImpl(
	st *store.Store,
	providers *oauth.Registry,
	codes service.AuthCodeService,
	pub events.Publisher,
	callbackURL string,
	logger *slog.Logger,
) *OAuthServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OAuthServiceImpl{
		store:       st,
		providers:   providers,
		codes:       codes,
		events:      pub,
		callbackURL: callbackURL,
		now:         utcNow,
		log:         orDefault(logger),
	}
}

func (o *OAuthServiceImpl) provider(t domain.ProviderType) (oauth.Provider, error) {
	switch t {
	case domain.ProviderGoogle, domain.ProviderGitHub:
		p, ok := o.providers.Get(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not configured", domain.ErrUnknownProvider, t)
		}
		return p, nil
	case domain.ProviderEmail:
		return nil, domain.ErrInvalidAuthProvider
	}
	return nil, domain.ErrUnknownProvider
}

func (o *OAuthServiceImpl) AuthorizationURL(t domain.ProviderType, state string) (string, error) {
	p, err := o.provider(t)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

func (o *OAuthServiceImpl) HandleCallback(ctx context.Context, t domain.ProviderType, code string) (redirect string, err error) {
	defer func() {
		metrics.OAuthCallbacksTotal.WithLabelValues(t.String(), metrics.Result(err)).Inc()
	}()

	p, err := o.provider(t)
	if err != nil {
		return o.ErrorRedirect(service.OAuthErrProvider), err
	}
	identity, err := p.Identify(ctx, code)
	if err != nil {
		return o.ErrorRedirect(service.OAuthErrProvider), err
	}
	user, err := o.resolveUser(ctx, t, identity)
	if err != nil {
		return o.ErrorRedirect(callbackErrorCode(err)), err
	}
	authCode, err := o.codes.Issue(ctx, user.ID, t)
	if err != nil {
		return o.ErrorRedirect(service.OAuthErrServer), err
	}
	redirect, err = withQuery(o.callbackURL, url.Values{"code": {authCode}})
	if err != nil {
		return o.ErrorRedirect(service.OAuthErrServer), err
	}
	o.log.Info("oauth login", append([]any{"provider", t, "user_id", user.ID}, requestAttrs(ctx)...)...)
	return redirect, nil
}

func (o *OAuthServiceImpl) ErrorRedirect(code string) string {
	redirect, err := withQuery(o.callbackURL, url.Values{"error": {code}})
	if err != nil {
		return o.callbackURL
	}
	return redirect
}

// resolveUser finds the account bound to the provider identity or creates
// one. An email owned by an account of another provider is never taken over.
func (o *OAuthServiceImpl) resolveUser(ctx context.Context, t domain.ProviderType, id *oauth.Identity) (*domain.User, error) {
	existing, err := o.store.Users().GetByProviderIdentity(ctx, t, id.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	email := normalizeEmail(id.Email)
	emailTaken := false
	if email != "" {
		owner, err := o.store.Users().GetByEmail(ctx, email)
		switch {
		case err == nil && owner.AuthProviderType != t:
			o.log.Warn("oauth email belongs to another provider",
				append([]any{"provider", t, "owner_provider", owner.AuthProviderType}, requestAttrs(ctx)...)...)
			return nil, domain.ErrUserAlreadyExists
		case err == nil:
			emailTaken = true
		case !errors.Is(err, store.ErrRecordNotFound):
			return nil, err
		}
	}

	now := o.now()
	externalID := id.ExternalID
	user := &domain.User{
		DisplayName:            id.DisplayName,
		AuthProviderType:       t,
		AuthProviderExternalID: &externalID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if id.AvatarURL != "" {
		avatar := id.AvatarURL
		user.AvatarURL = &avatar
	}
	if email != "" && !emailTaken {
		user.Email = &email
		if id.EmailVerified {
			user.EmailVerifiedAt = &now
		}
	}

	if err := o.store.Users().Create(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}
	metrics.AuthRegistrationsTotal.WithLabelValues("success").Inc()
	o.events.Publish(ctx, events.UserRegistered{UserID: user.ID.String(), Email: user.EmailAddress(), Provider: t.String(), At: now})
	return user, nil
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return service.OAuthErrUserAlreadyExists
	case errors.Is(err, domain.ErrProviderFailure), errors.Is(err, domain.ErrUnknownProvider):
		return service.OAuthErrProvider
	default:
		return service.OAuthErrServer
	}
}
