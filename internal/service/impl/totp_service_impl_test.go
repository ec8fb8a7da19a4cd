package impl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"authcore/internal/domain"
)

// base32 of the RFC 6238 SHA1 seed "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPRFC6238Vectors(t *testing.T) {
	svc := NewTOTPServiceImpl(nil, "authcore", discardLogger())
	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tc := range cases {
		if !svc.Verify(rfcSecret, tc.code, time.Unix(tc.unix, 0)) {
			t.Fatalf("expected %s to verify at %d", tc.code, tc.unix)
		}
	}
}

func TestTOTPSkewWindow(t *testing.T) {
	svc := NewTOTPServiceImpl(nil, "authcore", discardLogger())
	// "287082" belongs to step 1 (t=30..59)
	if !svc.Verify(rfcSecret, "287082", time.Unix(89, 0)) {
		t.Fatal("previous step should be accepted")
	}
	if !svc.Verify(rfcSecret, "287082", time.Unix(15, 0)) {
		t.Fatal("next step should be accepted")
	}
	if svc.Verify(rfcSecret, "287082", time.Unix(120, 0)) {
		t.Fatal("two steps away must be rejected")
	}
	if svc.Verify(rfcSecret, "000000", time.Unix(59, 0)) {
		t.Fatal("wrong code must be rejected")
	}
	if svc.Verify("not base32!", "287082", time.Unix(59, 0)) {
		t.Fatal("invalid secret must be rejected")
	}
}

func TestGenerateSecretURI(t *testing.T) {
	svc := NewTOTPServiceImpl(nil, "authcore", discardLogger())
	secret, uri, err := svc.GenerateSecret("a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(secret) != 32 {
		t.Fatalf("expected 160-bit secret, got %q", secret)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/authcore:a@b.com?") || !strings.Contains(uri, "secret="+secret) {
		t.Fatalf("unexpected uri %q", uri)
	}
}

func TestTOTPEnrollmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "totp@b.com", "secret123")

	setup, err := f.totp.BeginEnrollment(ctx, u.ID)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	got, _ := f.store.Users().GetByID(ctx, u.ID)
	if f.totp.IsEnabled(got) {
		t.Fatal("secret must stay disabled until confirmed")
	}

	if err := f.totp.ConfirmEnrollment(ctx, u.ID, wrongCode(t, setup.Secret, f.clock.now())); !errors.Is(err, domain.ErrInvalidTotpCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}

	code := currentCode(t, setup.Secret, f.clock.now())
	if err := f.totp.ConfirmEnrollment(ctx, u.ID, code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ = f.store.Users().GetByID(ctx, u.ID)
	if !f.totp.IsEnabled(got) {
		t.Fatal("expected totp enabled")
	}

	if _, err := f.totp.BeginEnrollment(ctx, u.ID); !errors.Is(err, domain.ErrTotpAlreadyEnabled) {
		t.Fatalf("expected already enabled, got %v", err)
	}

	if err := f.totp.Disable(ctx, u.ID, code); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, _ = f.store.Users().GetByID(ctx, u.ID)
	if got.TOTPSecret != nil || got.TOTPEnabledAt != nil {
		t.Fatal("disable must clear the secret")
	}
	if err := f.totp.Disable(ctx, u.ID, code); !errors.Is(err, domain.ErrTotpNotEnrolled) {
		t.Fatalf("expected not enrolled, got %v", err)
	}
}

func TestConfirmWithoutEnrollment(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "none@b.com", "secret123")
	if err := f.totp.ConfirmEnrollment(context.Background(), u.ID, "123456"); !errors.Is(err, domain.ErrTotpNotEnrolled) {
		t.Fatalf("expected not enrolled, got %v", err)
	}
}

func mustDecode(t *testing.T, secret string) []byte {
	t.Helper()
	key, err := decodeSecret(secret)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func currentCode(t *testing.T, secret string, now time.Time) string {
	t.Helper()
	return hotp(mustDecode(t, secret), uint64(now.Unix()/totpPeriod))
}

// wrongCode returns a code that no accepted window produces at now.
func wrongCode(t *testing.T, secret string, now time.Time) string {
	t.Helper()
	key := mustDecode(t, secret)
	step := now.Unix() / totpPeriod
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		clash := false
		for d := int64(-totpSkew); d <= totpSkew; d++ {
			if hotp(key, uint64(step+d)) == candidate {
				clash = true
			}
		}
		if !clash {
			return candidate
		}
	}
	t.Fatal("no non-matching code found")
	return ""
}
