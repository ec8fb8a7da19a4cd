package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authcore/internal/domain"
	"authcore/internal/store"
	"authcore/internal/store/storetest"
)

func ptr[T any](v T) *T { return &v }

func newEmailUser(email string) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		Email:            ptr(email),
		PasswordHash:     ptr("hash"),
		Salt:             ptr("salt"),
		Iterations:       ptr(1),
		AuthProviderType: domain.ProviderEmail,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestUserStoreUniqueEmail(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, st.Users().Create(ctx, newEmailUser("a@b.com")))
	err := st.Users().Create(ctx, newEmailUser("a@b.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrDuplicateKey), "got %v", err)
}

func TestUserStoreNullEmailsDoNotCollide(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, ext := range []string{"1", "2"} {
		u := &domain.User{
			AuthProviderType:       domain.ProviderGitHub,
			AuthProviderExternalID: ptr(ext),
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		require.NoError(t, st.Users().Create(ctx, u))
	}

	dup := &domain.User{
		AuthProviderType:       domain.ProviderGitHub,
		AuthProviderExternalID: ptr("1"),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	assert.ErrorIs(t, st.Users().Create(ctx, dup), store.ErrDuplicateKey)

	got, err := st.Users().GetByProviderIdentity(ctx, domain.ProviderGitHub, "2")
	require.NoError(t, err)
	assert.Nil(t, got.Email)
}

func TestUserStoreGetMissing(t *testing.T) {
	st := storetest.New(t)
	_, err := st.Users().GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestUserStoreTOTPLifecycle(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	u := newEmailUser("t@b.com")
	require.NoError(t, st.Users().Create(ctx, u))

	now := time.Now().UTC()
	require.NoError(t, st.Users().SetTOTPSecret(ctx, u.ID, "SECRET", now))
	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.TOTPEnabled())

	require.NoError(t, st.Users().EnableTOTP(ctx, u.ID, now))
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.TOTPEnabled())

	require.NoError(t, st.Users().DisableTOTP(ctx, u.ID, now))
	assert.ErrorIs(t, st.Users().EnableTOTP(ctx, u.ID, now), store.ErrRecordNotFound)
}

func TestSessionRevokeIsConditional(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	s := &domain.Session{
		UserID:           uuid.New(),
		RefreshSecret:    "secret",
		AuthProviderType: domain.ProviderEmail,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().Create(ctx, s))

	n, err := st.Sessions().Revoke(ctx, s.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = st.Sessions().Revoke(ctx, s.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := st.Sessions().GetForUser(ctx, s.ID, s.UserID)
	require.NoError(t, err)
	assert.True(t, got.IsRevoked())

	_, err = st.Sessions().GetForUser(ctx, s.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestAuthCodeConsumeOnce(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	code := &domain.AuthorizationCode{
		ID:               "abc",
		UserID:           uuid.New(),
		AuthProviderType: domain.ProviderEmail,
		CreatedAt:        now,
		ExpiresAt:        now.Add(5 * time.Minute),
	}
	require.NoError(t, st.AuthCodes().Create(ctx, code))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.AuthCodes().Consume(ctx, "abc"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	_, err := st.AuthCodes().Consume(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestEmailVerificationReplaceKeepsOneRow(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	for _, code := range []string{"first", "second"} {
		err := st.WithTx(ctx, func(tx *store.Store) error {
			return tx.EmailVerifications().ReplaceForUser(ctx, &domain.EmailVerification{
				ID: code, UserID: userID, Email: "a@b.com", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
			})
		})
		require.NoError(t, err)
	}

	_, err := st.EmailVerifications().Get(ctx, "a@b.com", "first")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = st.EmailVerifications().Get(ctx, "a@b.com", "second")
	assert.NoError(t, err)
	_, err = st.EmailVerifications().Get(ctx, "other@b.com", "second")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestOneCodeRowPerUser(t *testing.T) {
	st := storetest.New(t)
	now := time.Now().UTC()
	userID := uuid.New()

	require.NoError(t, st.DB.Create(&domain.EmailVerification{
		ID: "v1", UserID: userID, Email: "a@b.com", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	}).Error)
	err := st.DB.Create(&domain.EmailVerification{
		ID: "v2", UserID: userID, Email: "a@b.com", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	}).Error
	assert.True(t, store.IsUniqueViolation(err), "second verification row: %v", err)

	require.NoError(t, st.DB.Create(&domain.PasswordRecovery{
		ID: "r1", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}).Error)
	err = st.DB.Create(&domain.PasswordRecovery{
		ID: "r2", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}).Error
	assert.True(t, store.IsUniqueViolation(err), "second recovery row: %v", err)
}

func TestReplaceForUserConcurrent(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs[i] = st.EmailVerifications().ReplaceForUser(ctx, &domain.EmailVerification{
				ID: uuid.NewString(), UserID: userID, Email: "a@b.com", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
			})
		}(i)
		go func() {
			defer wg.Done()
			_ = st.PasswordRecoveries().ReplaceForUser(ctx, &domain.PasswordRecovery{
				ID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
			})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var verifications, recoveries int64
	require.NoError(t, st.DB.Model(&domain.EmailVerification{}).Where("user_id = ?", userID).Count(&verifications).Error)
	require.NoError(t, st.DB.Model(&domain.PasswordRecovery{}).Where("user_id = ?", userID).Count(&recoveries).Error)
	assert.EqualValues(t, 1, verifications)
	assert.EqualValues(t, 1, recoveries)
}

func TestPasswordRecoveryScopedToUser(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	require.NoError(t, st.PasswordRecoveries().ReplaceForUser(ctx, &domain.PasswordRecovery{
		ID: "code", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	_, err := st.PasswordRecoveries().Get(ctx, "code", uuid.New())
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	n, err := st.PasswordRecoveries().Delete(ctx, "code")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDeleteUserData(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	u := newEmailUser("gone@b.com")
	require.NoError(t, st.Users().Create(ctx, u))
	require.NoError(t, st.Sessions().Create(ctx, &domain.Session{
		UserID: u.ID, RefreshSecret: "s1", AuthProviderType: domain.ProviderEmail, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, st.AuthCodes().Create(ctx, &domain.AuthorizationCode{
		ID: "c1", UserID: u.ID, AuthProviderType: domain.ProviderEmail, CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	}))

	deleted, err := st.DeleteUserData(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted["users"])
	assert.EqualValues(t, 1, deleted["sessions"])
	assert.EqualValues(t, 1, deleted["authorizationCodes"])

	_, err = st.DeleteUserData(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, store.IsUniqueViolation(nil))
	assert.False(t, store.IsUniqueViolation(errors.New("boom")))
	assert.True(t, store.IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
}
