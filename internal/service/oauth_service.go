package service

import (
	"context"

	"authcore/internal/domain"
)

// Redirect error codes understood by the browser application.
const (
	OAuthErrUserAlreadyExists = "user_already_exists"
	OAuthErrInvalidState      = "invalid_state"
	OAuthErrProvider          = "provider_error"
	OAuthErrAccessDenied      = "access_denied"
	OAuthErrServer            = "server_error"
)

type OAuthService interface {
	AuthorizationURL(provider domain.ProviderType, state string) (string, error)
	// HandleCallback always returns a redirect for the browser. On failure the
	// URL carries ?error=<code> and err holds the cause for logging.
	HandleCallback(ctx context.Context, provider domain.ProviderType, code string) (redirectURL string, err error)
	ErrorRedirect(code string) string
}
