package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"authcore/internal/domain"
	"authcore/internal/events"
	"authcore/internal/mailer"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

const (
	DefaultPasswordRecoveryTTL = time.Hour
	// Codes only travel inside emailed links and are never typed by hand.
	recoveryCodeBytes          = 32
)

type PasswordRecoveryServiceImpl struct {
	store     *store.Store
	passwords service.PasswordService
	mail      service.EmailService
	templates EmailTemplates
	events    events.Publisher
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewPasswordRecoveryServiceImpl(
	st *store.Store,
	passwords service.PasswordService,
	mail service.EmailService,
	templates EmailTemplates,
	pub events.Publisher,
	ttl time.Duration,
	logger *slog.Logger,
) *PasswordRecoveryServiceImpl {
	if ttl <= 0 {
		ttl = DefaultPasswordRecoveryTTL
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &PasswordRecoveryServiceImpl{
		store:     st,
		passwords: passwords,
		mail:      mail,
		templates: templates,
		events:    pub,
		ttl:       ttl,
		now:       utcNow,
		log:       orDefault(logger),
	}
}

// Forgot emails a reset code to password accounts. Unknown addresses and
// external-provider accounts get the same nil result.
func (p *PasswordRecoveryServiceImpl) Forgot(ctx context.Context, email string) error {
	user, err := p.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.AuthProviderType != domain.ProviderEmail {
		p.log.Debug("password reset skipped for external account", append([]any{"user_id", user.ID}, requestAttrs(ctx)...)...)
		return nil
	}
	return p.Issue(ctx, user.ID)
}

func (p *PasswordRecoveryServiceImpl) Issue(ctx context.Context, userID domain.UserID) (err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("password_recovery", "issue", metrics.Result(err)).Inc()
	}()

	user, err := p.store.Users().GetByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	if user.Email == nil {
		return domain.ErrInvalidAuthProvider
	}

	code, err := randomHex(recoveryCodeBytes)
	if err != nil {
		return err
	}
	now := p.now()
	err = p.store.WithTx(ctx, func(tx *store.Store) error {
		return tx.PasswordRecoveries().ReplaceForUser(ctx, &domain.PasswordRecovery{
			ID:        code,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(p.ttl),
		})
	})
	if err != nil {
		return err
	}

	subject, html, err := p.templates.ResetPassword(userID.String(), code, humanDuration(p.ttl))
	if err != nil {
		return err
	}
	err = p.mail.SendEmail(ctx, *user.Email, subject, html)
	metrics.EmailsSentTotal.WithLabelValues(mailer.TemplateResetPassword, metrics.Result(err)).Inc()
	return err
}

// Reset consumes the recovery code, stores a freshly salted hash and revokes
// every session of the user.
func (p *PasswordRecoveryServiceImpl) Reset(ctx context.Context, userID domain.UserID, code, newPassword string) (err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("password_recovery", "redeem", metrics.Result(err)).Inc()
	}()

	now := p.now()
	rec, err := p.store.PasswordRecoveries().Get(ctx, code, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrPasswordResetNotFound)
	}
	if domain.Expired(rec.ExpiresAt, now) {
		if _, derr := p.store.PasswordRecoveries().Delete(ctx, rec.ID); derr != nil {
			p.log.Warn("reap expired password recovery failed", "error", derr)
		}
		return domain.ErrPasswordResetExpired
	}

	// Hash before opening the transaction; PBKDF2 at policy cost is slow.
	hash, salt, iterations, err := p.passwords.NewCredential(newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = p.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return notFoundAs(err, domain.ErrUserNotFound)
		}
		if user.AuthProviderType != domain.ProviderEmail {
			return domain.ErrInvalidAuthProvider
		}
		n, err := tx.PasswordRecoveries().Delete(ctx, rec.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPasswordResetNotFound
		}
		if err := tx.Users().UpdatePassword(ctx, userID, hash, salt, iterations, now); err != nil {
			return notFoundAs(err, domain.ErrUserNotFound)
		}
		revoked, err = tx.Sessions().RevokeAllForUser(ctx, userID, now)
		return err
	})
	if err != nil {
		return err
	}

	p.events.Publish(ctx, events.PasswordReset{UserID: userID.String(), SessionsRevoked: revoked, At: now})
	p.log.Info("password reset", append([]any{"user_id", userID, "sessions_revoked", revoked}, requestAttrs(ctx)...)...)
	return nil
}
