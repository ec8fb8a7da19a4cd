package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type UserID = uuid.UUID
type SessionID = uuid.UUID

// ProviderType identifies how a user proves their identity.
type ProviderType string

const (
	ProviderEmail  ProviderType = "email"
	ProviderGoogle ProviderType = "google"
	ProviderGitHub ProviderType = "github"
)

// ParseProviderType returns the provider named by s (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderGitHub:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// IsExternal reports whether the provider is an OAuth identity provider.
func (p ProviderType) IsExternal() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub:
		return true
	case ProviderEmail:
		return false
	}
	return false
}

func (p ProviderType) String() string { return string(p) }
