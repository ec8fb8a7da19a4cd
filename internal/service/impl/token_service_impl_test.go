package impl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authcore/internal/domain"
)

func decodeClaims(t *testing.T, token string) *jwt.RegisteredClaims {
	t.Helper()
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims
}

func TestCreateSessionClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "s@b.com", "secret123")

	pair, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "203.0.113.7", "test-agent")
	require.NoError(t, err)
	assert.EqualValues(t, 3600, pair.ExpiresIn)

	access := decodeClaims(t, pair.AccessToken)
	assert.Equal(t, u.ID.String(), access.Subject)
	assert.Equal(t, "authcore-test", access.Issuer)
	assert.Empty(t, access.ID)

	refresh := decodeClaims(t, pair.RefreshToken)
	assert.Equal(t, u.ID.String(), refresh.Subject)
	require.NotEmpty(t, refresh.ID)

	sessionID := mustUUID(t, refresh.ID)
	sess, err := f.store.Sessions().GetForUser(ctx, sessionID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", sess.IPAddress)
	assert.Equal(t, "test-agent", sess.UserAgent)
	assert.True(t, sess.ExpiresAt.Equal(f.clock.now().Add(24*time.Hour)))
	assert.True(t, refresh.ExpiresAt.Time.Equal(sess.ExpiresAt))
	assert.Len(t, sess.RefreshSecret, 64)

	gotUser, err := f.tokens.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotUser)
}

func TestRefreshRotatesAndRevokesOldSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "r@b.com", "secret123")

	first, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	f.clock.advance(time.Minute)
	second, err := f.tokens.Refresh(ctx, first.RefreshToken, "198.51.100.1", "ua")
	require.NoError(t, err)

	oldID := decodeClaims(t, first.RefreshToken).ID
	newID := decodeClaims(t, second.RefreshToken).ID
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, u.ID.String(), decodeClaims(t, second.AccessToken).Subject)

	_, err = f.tokens.Refresh(ctx, first.RefreshToken, "", "")
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	_, err = f.tokens.Refresh(ctx, second.RefreshToken, "", "")
	assert.NoError(t, err)
}

func TestLogoutIsTerminalAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "l@b.com", "secret123")

	pair, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	require.NoError(t, f.tokens.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.tokens.Logout(ctx, pair.RefreshToken))

	_, err = f.tokens.Refresh(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
}

func TestRefreshTokenBoundToItsSessionSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "x@b.com", "secret123")

	a, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)
	b, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	sessA, err := f.store.Sessions().GetForUser(ctx, mustUUID(t, decodeClaims(t, a.RefreshToken).ID), u.ID)
	require.NoError(t, err)
	bClaims := decodeClaims(t, b.RefreshToken)

	// A token naming session B but signed with session A's secret.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, bClaims).SignedString([]byte(sessA.RefreshSecret))
	require.NoError(t, err)

	_, err = f.tokens.Refresh(ctx, forged, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	// Signed with the service key instead of a session secret.
	forged, err = jwt.NewWithClaims(jwt.SigningMethodHS256, bClaims).SignedString(testSigningKey)
	require.NoError(t, err)
	_, err = f.tokens.Refresh(ctx, forged, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefreshFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "f@b.com", "secret123")

	_, err := f.tokens.Refresh(ctx, "not-a-jwt", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	pair, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	claims := decodeClaims(t, pair.RefreshToken)
	claims.Subject = mustUUID(t, "6f1c1a0e-0000-4000-8000-000000000000").String()
	unknown, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	require.NoError(t, err)
	_, err = f.tokens.Refresh(ctx, unknown, "", "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	f.clock.advance(25 * time.Hour)
	_, err = f.tokens.Refresh(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestRefreshFailsForDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "d@b.com", "secret123")
	pair, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	require.NoError(t, f.store.DB.Delete(&domain.User{}, "id = ?", u.ID).Error)

	_, err = f.tokens.Refresh(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestVerifyAccessRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "v@b.com", "secret123")
	pair, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
	require.NoError(t, err)

	_, err = f.tokens.VerifyAccess(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidAccessToken)

	f.clock.advance(2 * time.Hour)
	_, err = f.tokens.VerifyAccess(ctx, pair.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrInvalidAccessToken))
}

func TestRevokeAllForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "all@b.com", "secret123")
	for i := 0; i < 3; i++ {
		_, err := f.tokens.CreateSession(ctx, u.ID, domain.ProviderEmail, "", "")
		require.NoError(t, err)
	}
	n, err := f.tokens.RevokeAllForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
