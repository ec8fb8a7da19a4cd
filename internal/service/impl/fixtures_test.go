package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"authcore/internal/domain"
	"authcore/internal/mailer"
	"authcore/internal/store"
	"authcore/internal/store/storetest"
)

const (
	testIterations  = 1000
	testCallbackURL = "https://app.test/auth/callback"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type sentEmail struct {
	to, subject, html string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *recordingMailer) SendEmail(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentEmail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no email sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store     *store.Store
	clock     *clock
	mail      *recordingMailer
	passwords *PasswordServicePBKDF2
	totp      *TOTPServiceImpl
	tokens    *TokenServiceImpl
	codes     *AuthCodeServiceImpl
	verify    *EmailVerificationServiceImpl
	recovery  *PasswordRecoveryServiceImpl
	auth      *AuthServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.New(t)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mail := &recordingMailer{}
	templates, err := mailer.NewTemplates("authcore", "https://app.test/verify", "https://app.test/reset")
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	log := discardLogger()

	f := &fixture{store: st, clock: c, mail: mail}
	f.passwords = NewPasswordServicePBKDF2(testIterations)
	f.totp = NewTOTPServiceImpl(st, "authcore", log)
	f.totp.now = c.now
	f.tokens = NewTokenServiceImpl(TokenConfig{
		Issuer:     "authcore-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		SigningKey: testSigningKey,
	}, st, nil, log)
	f.tokens.now = c.now
	f.codes = NewAuthCodeServiceImpl(st, f.tokens, 0, log)
	f.codes.now = c.now
	f.verify = NewEmailVerificationServiceImpl(st, mail, templates, nil, 0, log)
	f.verify.now = c.now
	f.recovery = NewPasswordRecoveryServiceImpl(st, f.passwords, mail, templates, nil, 0, log)
	f.recovery.now = c.now
	f.auth = NewAuthServiceImpl(st, f.passwords, f.totp, f.verify, f.codes, nil, testCallbackURL, log)
	f.auth.now = c.now
	return f
}

// createUser inserts a verified password account.
func (f *fixture) createUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	hash, salt, iterations, err := f.passwords.NewCredential(password)
	if err != nil {
		t.Fatal(err)
	}
	now := f.clock.now()
	u := &domain.User{
		Email:            &email,
		PasswordHash:     &hash,
		Salt:             &salt,
		Iterations:       &iterations,
		AuthProviderType: domain.ProviderEmail,
		EmailVerifiedAt:  &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) createExternalUser(t *testing.T, provider domain.ProviderType, externalID, email string) *domain.User {
	t.Helper()
	now := f.clock.now()
	u := &domain.User{
		AuthProviderType:       provider,
		AuthProviderExternalID: &externalID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if email != "" {
		u.Email = &email
		u.EmailVerifiedAt = &now
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create external user: %v", err)
	}
	return u
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", s, err)
	}
	return id
}
