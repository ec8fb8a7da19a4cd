package service

import (
	"context"

	"authcore/internal/domain"
	"authcore/internal/dto"
)

type TokenService interface {
	CreateSession(ctx context.Context, userID domain.UserID, provider domain.ProviderType, ip, ua string) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken, ip, ua string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccess(ctx context.Context, accessToken string) (domain.UserID, error)
	RevokeAllForUser(ctx context.Context, userID domain.UserID) (int64, error)
}

type AuthCodeService interface {
	Issue(ctx context.Context, userID domain.UserID, provider domain.ProviderType) (string, error)
	Exchange(ctx context.Context, code, ip, ua string) (*dto.TokenResponse, error)
}
