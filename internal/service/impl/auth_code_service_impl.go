package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

const (
	DefaultAuthCodeTTL = 5 * time.Minute
	authCodeBytes      = 32
)

// AuthCodeServiceImpl brokers one-time codes that a redirect-based client
// trades for a token pair.
type AuthCodeServiceImpl struct {
	store  *store.Store
	tokens service.TokenService
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger
}

func NewAuthCodeServiceImpl(st *store.Store, tokens service.TokenService, ttl time.Duration, logger *slog.Logger) *AuthCodeServiceImpl {
	if ttl <= 0 {
		ttl = DefaultAuthCodeTTL
	}
	return &AuthCodeServiceImpl{store: st, tokens: tokens, ttl: ttl, now: utcNow, log: orDefault(logger)}
}

func (a *AuthCodeServiceImpl) Issue(ctx context.Context, userID domain.UserID, provider domain.ProviderType) (code string, err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("authorization_code", "issue", metrics.Result(err)).Inc()
	}()

	code, err = randomHex(authCodeBytes)
	if err != nil {
		return "", err
	}
	now := a.now()
	err = a.store.AuthCodes().Create(ctx, &domain.AuthorizationCode{
		ID:               code,
		UserID:           userID,
		AuthProviderType: provider,
		CreatedAt:        now,
		ExpiresAt:        now.Add(a.ttl),
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Exchange consumes code and opens a session for its user. The code is gone
// after the first call whatever the outcome.
func (a *AuthCodeServiceImpl) Exchange(ctx context.Context, code, ip, ua string) (tokens *dto.TokenResponse, err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("authorization_code", "redeem", metrics.Result(err)).Inc()
	}()

	c, err := a.store.AuthCodes().Consume(ctx, code)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrAuthorizationCodeNotFound)
	}
	if domain.Expired(c.ExpiresAt, a.now()) {
		return nil, domain.ErrAuthorizationCodeExpired
	}

	user, err := a.store.Users().GetByID(ctx, c.UserID)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	if user.AuthProviderType != c.AuthProviderType {
		a.log.Warn("authorization code provider mismatch",
			append([]any{"user_id", user.ID, "code_provider", c.AuthProviderType, "user_provider", user.AuthProviderType}, requestAttrs(ctx)...)...)
		return nil, domain.ErrInvalidAuthProvider
	}

	tokens, err = a.tokens.CreateSession(ctx, user.ID, c.AuthProviderType, ip, ua)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return tokens, nil
}
