package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/events"
	"authcore/internal/netutil"
	"authcore/internal/observability/metrics"
	"authcore/internal/store"
)

const refreshSecretBytes = 32

type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SigningKey []byte // HS256 secret for access tokens
}

// RefreshClaims carries sub (user id) and jti (session id). The token is
// signed with the session's own refresh secret, never the service key.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenServiceImpl issues, rotates and revokes sessions. Refresh rotation
// revokes the redeemed session, so every refresh token is single use.
type TokenServiceImpl struct {
	cfg    TokenConfig
	store  *store.Store
	events events.Publisher
	now    func() time.Time
	log    *slog.Logger
}

func NewTokenServiceImpl(cfg TokenConfig, st *store.Store, pub events.Publisher, logger *slog.Logger) *TokenServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TokenServiceImpl{cfg: cfg, store: st, events: pub, now: utcNow, log: orDefault(logger)}
}

func (t *TokenServiceImpl) CreateSession(ctx context.Context, userID domain.UserID, provider domain.ProviderType, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("issue", result).Inc()
	}()

	tokens, sess, err := t.createSession(ctx, t.store, userID, provider, ip, ua, t.now())
	if err != nil {
		result = "failure"
		return nil, err
	}
	t.events.Publish(ctx, events.SessionCreated{SessionID: sess.ID.String(), UserID: userID.String(), Provider: provider.String(), At: sess.CreatedAt})
	t.log.Info("issued tokens", append([]any{"session_id", sess.ID, "user_id", userID, "provider", provider}, requestAttrs(ctx)...)...)
	return tokens, nil
}

// Refresh redeems a refresh token for a new pair. The old session is revoked
// and the new one created in one transaction; a concurrent redeemer of the
// same token loses with ErrSessionRevoked.
func (t *TokenServiceImpl) Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()

	sess, err := t.verifiedSession(ctx, refreshToken, true)
	if err != nil {
		result = "failure"
		return nil, err
	}

	var (
		tokens *dto.TokenResponse
		next   *domain.Session
	)
	now := t.now()
	err = t.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Users().GetByID(ctx, sess.UserID); err != nil {
			return notFoundAs(err, domain.ErrUserNotFound)
		}
		n, err := tx.Sessions().Revoke(ctx, sess.ID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrSessionRevoked
		}
		tokens, next, err = t.createSession(ctx, tx, sess.UserID, sess.AuthProviderType, ip, ua, now)
		return err
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	t.events.Publish(ctx, events.SessionRevoked{SessionID: sess.ID.String(), UserID: sess.UserID.String(), Reason: "rotated", At: now})
	t.log.Info("refreshed tokens", append([]any{"session_id", next.ID, "previous_session_id", sess.ID, "user_id", sess.UserID}, requestAttrs(ctx)...)...)
	return tokens, nil
}

// Logout revokes the session named by the token. Revoking an already revoked
// session succeeds. An expired but otherwise valid token may still log out.
func (t *TokenServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("revoke", result).Inc()
	}()

	sess, err := t.verifiedSession(ctx, refreshToken, false)
	if err != nil {
		result = "failure"
		return err
	}
	now := t.now()
	n, err := t.store.Sessions().Revoke(ctx, sess.ID, now)
	if err != nil {
		result = "failure"
		return err
	}
	if n > 0 {
		t.events.Publish(ctx, events.SessionRevoked{SessionID: sess.ID.String(), UserID: sess.UserID.String(), Reason: "logout", At: now})
	}
	t.log.Info("session revoked", append([]any{"session_id", sess.ID, "user_id", sess.UserID, "already_revoked", n == 0}, requestAttrs(ctx)...)...)
	return nil
}

func (t *TokenServiceImpl) VerifyAccess(_ context.Context, accessToken string) (domain.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if _, err := parser.ParseWithClaims(accessToken, claims, func(*jwt.Token) (any, error) {
		return t.cfg.SigningKey, nil
	}); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidAccessToken, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidAccessToken
	}
	return userID, nil
}

func (t *TokenServiceImpl) RevokeAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	return t.store.Sessions().RevokeAllForUser(ctx, userID, t.now())
}

// verifiedSession decodes the token without trusting it, loads the session it
// names and then verifies the signature with that session's secret.
func (t *TokenServiceImpl) verifiedSession(ctx context.Context, raw string, checkRevoked bool) (*domain.Session, error) {
	unverified := &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, unverified); err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	sessionID, err := uuid.Parse(unverified.ID)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(unverified.Subject)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	sess, err := t.store.Sessions().GetForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrSessionNotFound)
	}
	if checkRevoked && sess.IsRevoked() {
		return nil, domain.ErrSessionRevoked
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if checkRevoked {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	verified := &RefreshClaims{}
	if _, err := jwt.NewParser(opts...).ParseWithClaims(raw, verified, func(*jwt.Token) (any, error) {
		return []byte(sess.RefreshSecret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRefreshToken, err)
	}
	return sess, nil
}

func (t *TokenServiceImpl) createSession(ctx context.Context, st *store.Store, userID domain.UserID, provider domain.ProviderType, ip, ua string, now time.Time) (*dto.TokenResponse, *domain.Session, error) {
	secret, err := randomHex(refreshSecretBytes)
	if err != nil {
		return nil, nil, err
	}
	sess := &domain.Session{
		ID:               uuid.New(),
		UserID:           userID,
		RefreshSecret:    secret,
		UserAgent:        netutil.TruncateUserAgent(ua),
		IPAddress:        normalizeIP(ip),
		AuthProviderType: provider,
		CreatedAt:        now,
		ExpiresAt:        now.Add(t.cfg.RefreshTTL),
	}
	if err := st.Sessions().Create(ctx, sess); err != nil {
		return nil, nil, err
	}

	access, err := t.signAccess(userID, now)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := t.signRefresh(sess, now)
	if err != nil {
		return nil, nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, sess, nil
}

func (t *TokenServiceImpl) signAccess(userID domain.UserID, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    t.cfg.Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
	}
	if len(t.cfg.SigningKey) == 0 {
		return "", errors.New("empty signing key")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
}

func (t *TokenServiceImpl) signRefresh(sess *domain.Session, now time.Time) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   sess.UserID.String(),
			ID:        sess.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(sess.RefreshSecret))
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return ""
}
