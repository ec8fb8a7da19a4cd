package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"authcore/internal/domain"
)

func TestExchangeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "c@b.com", "secret123")

	code, err := f.codes.Issue(ctx, u.ID, domain.ProviderEmail)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != 64 {
		t.Fatalf("expected 32 random bytes hex encoded, got %q", code)
	}

	pair, err := f.codes.Exchange(ctx, code, "127.0.0.1", "ua")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if decodeClaims(t, pair.AccessToken).Subject != u.ID.String() {
		t.Fatal("access token subject mismatch")
	}

	if _, err := f.codes.Exchange(ctx, code, "", ""); !errors.Is(err, domain.ErrAuthorizationCodeNotFound) {
		t.Fatalf("expected not found on second exchange, got %v", err)
	}
}

func TestExchangeConcurrentRedemptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "cc@b.com", "secret123")
	code, err := f.codes.Issue(ctx, u.ID, domain.ProviderEmail)
	if err != nil {
		t.Fatal(err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.codes.Exchange(ctx, code, "", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAuthorizationCodeNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || notFound != 4 {
		t.Fatalf("expected 1 success and 4 not found, got %d/%d", successes, notFound)
	}
}

func TestExchangeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "e@b.com", "secret123")
	code, _ := f.codes.Issue(ctx, u.ID, domain.ProviderEmail)

	f.clock.advance(5 * time.Minute)
	if _, err := f.codes.Exchange(ctx, code, "", ""); !errors.Is(err, domain.ErrAuthorizationCodeExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	// expired codes are reaped on lookup
	if _, err := f.codes.Exchange(ctx, code, "", ""); !errors.Is(err, domain.ErrAuthorizationCodeNotFound) {
		t.Fatalf("expected not found after reaping, got %v", err)
	}
}

func TestExchangeProviderMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createExternalUser(t, domain.ProviderGitHub, "42", "gh@b.com")

	code, _ := f.codes.Issue(ctx, u.ID, domain.ProviderGoogle)
	if _, err := f.codes.Exchange(ctx, code, "", ""); !errors.Is(err, domain.ErrInvalidAuthProvider) {
		t.Fatalf("expected invalid provider, got %v", err)
	}
}

func TestExchangeUserGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "gone@b.com", "secret123")
	code, _ := f.codes.Issue(ctx, u.ID, domain.ProviderEmail)
	if _, err := f.store.DeleteUserData(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	code2, _ := f.codes.Issue(ctx, u.ID, domain.ProviderEmail)

	if _, err := f.codes.Exchange(ctx, code, "", ""); !errors.Is(err, domain.ErrAuthorizationCodeNotFound) {
		t.Fatalf("codes of a deleted account must be gone, got %v", err)
	}
	if _, err := f.codes.Exchange(ctx, code2, "", ""); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
