package service

import (
	"context"

	"authcore/internal/domain"
	"authcore/internal/dto"
)

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, r dto.LoginRequest) (*dto.LoginResponse, error)
	TotpStatus(ctx context.Context, email string) (*dto.TotpStatusResponse, error)
	Me(ctx context.Context, userID domain.UserID) (*dto.UserResponse, error)
	DeleteAccount(ctx context.Context, userID domain.UserID) error
}
