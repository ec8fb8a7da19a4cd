package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidAuthProvider = errors.New("invalid auth provider")
	ErrUnknownProvider     = errors.New("unknown auth provider")
	ErrTotpCodeRequired    = errors.New("totp code required")
	ErrInvalidTotpCode     = errors.New("invalid totp code")
	ErrTotpNotEnrolled     = errors.New("totp not enrolled")
	ErrTotpAlreadyEnabled  = errors.New("totp already enabled")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrEmailAlreadyInUse   = errors.New("email already in use")

	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionRevoked      = errors.New("session revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidAccessToken  = errors.New("invalid access token")

	ErrAuthorizationCodeNotFound = errors.New("authorization code not found")
	ErrAuthorizationCodeExpired  = errors.New("authorization code expired")
	ErrVerificationCodeNotFound  = errors.New("verification code not found")
	ErrVerificationCodeExpired   = errors.New("verification code expired")
	ErrPasswordResetNotFound     = errors.New("password reset not found")
	ErrPasswordResetExpired      = errors.New("password reset expired")

	ErrInvalidOAuthState = errors.New("invalid oauth state")
	ErrProviderFailure   = errors.New("identity provider failure")
)
