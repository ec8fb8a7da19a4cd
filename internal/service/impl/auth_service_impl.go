package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	"authcore/internal/events"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

type AuthServiceImpl struct {
	Store           *store.Store
	PasswordService service.PasswordService
	MFAService      service.MFAService
	Verifications   service.EmailVerificationService
	AuthCodes       service.AuthCodeService
	Events          events.Publisher

	callbackURL string
	now         func() time.Time
	log         *slog.Logger
}

func NewAuthServiceImpl(
	st *store.Store,
	passwords service.PasswordService,
	mfa service.MFAService,
	verifications service.EmailVerificationService,
	codes service.AuthCodeService,
	pub events.Publisher,
	callbackURL string,
	logger *slog.Logger,
) *AuthServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AuthServiceImpl{
		Store:           st,
		PasswordService: passwords,
		MFAService:      mfa,
		Verifications:   verifications,
		AuthCodes:       codes,
		Events:          pub,
		callbackURL:     callbackURL,
		now:             utcNow,
		log:             orDefault(logger),
	}
}

// Register creates a password account and sends the first verification code.
// The email pre-check is a fast path; the unique index decides races.
func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest) (out *dto.RegisterResponse, err error) {
	defer func() {
		metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	email := normalizeEmail(r.Email)
	if _, err := a.Store.Users().GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	hash, salt, iterations, err := a.PasswordService.NewCredential(r.Password)
	if err != nil {
		return nil, err
	}
	now := a.now()
	user := &domain.User{
		Email:            &email,
		PasswordHash:     &hash,
		Salt:             &salt,
		Iterations:       &iterations,
		AuthProviderType: domain.ProviderEmail,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := a.Store.Users().Create(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}
	a.Events.Publish(ctx, events.UserRegistered{UserID: user.ID.String(), Email: email, Provider: domain.ProviderEmail.String(), At: now})

	if err := a.Verifications.Issue(ctx, user.ID, email); err != nil {
		return nil, fmt.Errorf("issue email verification: %w", err)
	}

	return &dto.RegisterResponse{
		UserID:                    user.ID.String(),
		RequiresEmailVerification: true,
	}, nil
}

// Login checks password, verification state and TOTP in that order and
// answers with a redirect that carries a one-time authorization code.
func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest) (out *dto.LoginResponse, err error) {
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(domain.ProviderEmail.String(), metrics.Result(err)).Inc()
	}()

	user, err := a.Store.Users().GetByEmail(ctx, normalizeEmail(r.Email))
	if err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	if user.AuthProviderType != domain.ProviderEmail {
		return nil, domain.ErrInvalidAuthProvider
	}
	if !user.HasPassword() || !a.PasswordService.Verify(r.Password, *user.Salt, *user.Iterations, *user.PasswordHash) {
		a.log.Info("login rejected", append([]any{"user_id", user.ID, "reason", "password"}, requestAttrs(ctx)...)...)
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsEmailVerified() {
		return nil, domain.ErrEmailNotVerified
	}
	if a.MFAService.IsEnabled(user) {
		if r.TotpCode == "" {
			return nil, domain.ErrTotpCodeRequired
		}
		if !a.MFAService.Verify(*user.TOTPSecret, r.TotpCode, a.now()) {
			a.log.Info("login rejected", append([]any{"user_id", user.ID, "reason", "totp"}, requestAttrs(ctx)...)...)
			return nil, domain.ErrInvalidTotpCode
		}
	}

	if a.PasswordService.NeedsRehash(*user.Iterations) {
		a.rehash(ctx, user, r.Password)
	}

	code, err := a.AuthCodes.Issue(ctx, user.ID, domain.ProviderEmail)
	if err != nil {
		return nil, err
	}
	redirect, err := withQuery(a.callbackURL, url.Values{"code": {code}})
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{RedirectURL: redirect}, nil
}

// rehash upgrades a stored hash to the current iteration policy. Failure is
// logged and does not fail the login.
func (a *AuthServiceImpl) rehash(ctx context.Context, user *domain.User, password string) {
	hash, salt, iterations, err := a.PasswordService.NewCredential(password)
	if err == nil {
		err = a.Store.Users().UpdatePassword(ctx, user.ID, hash, salt, iterations, a.now())
	}
	if err != nil {
		a.log.Warn("password rehash failed", append([]any{"user_id", user.ID, "error", err}, requestAttrs(ctx)...)...)
		return
	}
	a.log.Info("password rehashed", "user_id", user.ID, "iterations", iterations)
}

func (a *AuthServiceImpl) TotpStatus(ctx context.Context, email string) (*dto.TotpStatusResponse, error) {
	user, err := a.Store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	return &dto.TotpStatusResponse{Enabled: a.MFAService.IsEnabled(user)}, nil
}

func (a *AuthServiceImpl) Me(ctx context.Context, userID domain.UserID) (*dto.UserResponse, error) {
	user, err := a.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrUserNotFound)
	}
	return &dto.UserResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		AvatarURL:        user.AvatarURL,
		AuthProviderType: user.AuthProviderType.String(),
		EmailVerifiedAt:  user.EmailVerifiedAt,
		TotpEnabled:      user.TOTPEnabled(),
		CreatedAt:        user.CreatedAt,
	}, nil
}

// DeleteAccount removes the user together with sessions and pending codes.
func (a *AuthServiceImpl) DeleteAccount(ctx context.Context, userID domain.UserID) error {
	deleted, err := a.Store.DeleteUserData(ctx, userID)
	if err != nil {
		return notFoundAs(err, domain.ErrUserNotFound)
	}
	a.Events.Publish(ctx, events.UserDeleted{UserID: userID.String(), Deleted: deleted, At: a.now()})
	a.log.Info("account deleted", append([]any{"user_id", userID, "deleted", deleted}, requestAttrs(ctx)...)...)
	return nil
}
