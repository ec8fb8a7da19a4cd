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
	DefaultEmailVerificationTTL = 15 * time.Minute
	// Codes only travel inside emailed links and are never typed by hand.
	verificationCodeBytes       = 32
)

// EmailTemplates renders the transactional emails. *mailer.Templates is the
// production implementation.
type EmailTemplates interface {
	VerifyEmail(email, code, ttl string) (subject, html string, err error)
	ResetPassword(userID, code, ttl string) (subject, html string, err error)
}

type EmailVerificationServiceImpl struct {
	store     *store.Store
	mail      service.EmailService
	templates EmailTemplates
	events    events.Publisher
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewEmailVerificationServiceImpl(
	st *store.Store,
	mail service.EmailService,
	templates EmailTemplates,
	pub events.Publisher,
	ttl time.Duration,
	logger *slog.Logger,
) *EmailVerificationServiceImpl {
	if ttl <= 0 {
		ttl = DefaultEmailVerificationTTL
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &EmailVerificationServiceImpl{
		store:     st,
		mail:      mail,
		templates: templates,
		events:    pub,
		ttl:       ttl,
		now:       utcNow,
		log:       orDefault(logger),
	}
}

// Issue replaces any pending verification for userID and emails a new code.
func (e *EmailVerificationServiceImpl) Issue(ctx context.Context, userID domain.UserID, email string) (err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("email_verification", "issue", metrics.Result(err)).Inc()
	}()

	email = normalizeEmail(email)
	code, err := randomHex(verificationCodeBytes)
	if err != nil {
		return err
	}
	now := e.now()
	err = e.store.WithTx(ctx, func(tx *store.Store) error {
		return tx.EmailVerifications().ReplaceForUser(ctx, &domain.EmailVerification{
			ID:        code,
			UserID:    userID,
			Email:     email,
			CreatedAt: now,
			ExpiresAt: now.Add(e.ttl),
		})
	})
	if err != nil {
		return err
	}

	subject, html, err := e.templates.VerifyEmail(email, code, humanDuration(e.ttl))
	if err != nil {
		return err
	}
	err = e.mail.SendEmail(ctx, email, subject, html)
	metrics.EmailsSentTotal.WithLabelValues(mailer.TemplateVerifyEmail, metrics.Result(err)).Inc()
	return err
}

// Confirm binds email to the code's owner and marks it verified. Lookup,
// ownership check, consumption and the user update share one transaction.
func (e *EmailVerificationServiceImpl) Confirm(ctx context.Context, email, code string) (err error) {
	defer func() {
		metrics.OneTimeCodesTotal.WithLabelValues("email_verification", "redeem", metrics.Result(err)).Inc()
	}()

	email = normalizeEmail(email)
	now := e.now()
	var userID domain.UserID

	err = e.store.WithTx(ctx, func(tx *store.Store) error {
		v, err := tx.EmailVerifications().Get(ctx, email, code)
		if err != nil {
			return notFoundAs(err, domain.ErrVerificationCodeNotFound)
		}
		if domain.Expired(v.ExpiresAt, now) {
			return domain.ErrVerificationCodeExpired
		}

		owner, err := tx.Users().GetByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != v.UserID:
			return domain.ErrEmailAlreadyInUse
		case err != nil && !errors.Is(err, store.ErrRecordNotFound):
			return err
		}

		n, err := tx.EmailVerifications().Delete(ctx, v.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrVerificationCodeNotFound
		}
		if _, err := tx.EmailVerifications().DeleteAllForUser(ctx, v.UserID); err != nil {
			return err
		}
		if err := tx.Users().SetEmailVerified(ctx, v.UserID, email, now); err != nil {
			if store.IsUniqueViolation(err) {
				return domain.ErrEmailAlreadyInUse
			}
			return notFoundAs(err, domain.ErrUserNotFound)
		}
		userID = v.UserID
		return nil
	})
	if errors.Is(err, domain.ErrVerificationCodeExpired) {
		if _, derr := e.store.EmailVerifications().Delete(ctx, code); derr != nil {
			e.log.Warn("reap expired verification failed", "error", derr)
		}
	}
	if err != nil {
		return err
	}

	e.events.Publish(ctx, events.EmailVerified{UserID: userID.String(), Email: email, At: now})
	return nil
}

// Resend issues a fresh code only for unverified email accounts. Every other
// case returns nil so callers learn nothing about the address.
func (e *EmailVerificationServiceImpl) Resend(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := e.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.AuthProviderType != domain.ProviderEmail || user.IsEmailVerified() {
		e.log.Debug("resend verification skipped", append([]any{"user_id", user.ID}, requestAttrs(ctx)...)...)
		return nil
	}
	return e.Issue(ctx, user.ID, email)
}

// RequestEmailChange starts verification of a new address for userID. The
// stored email only changes once the code is confirmed.
func (e *EmailVerificationServiceImpl) RequestEmailChange(ctx context.Context, userID domain.UserID, email string) error {
	email = normalizeEmail(email)
	user, err := e.store.Users().GetByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	owner, err := e.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil && owner.ID != user.ID:
		return domain.ErrEmailAlreadyExists
	case err == nil && user.IsEmailVerified():
		return nil
	case err != nil && !errors.Is(err, store.ErrRecordNotFound):
		return err
	}
	return e.Issue(ctx, user.ID, email)
}
