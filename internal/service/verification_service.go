package service

import (
	"context"

	"authcore/internal/domain"
)

type EmailVerificationService interface {
	Issue(ctx context.Context, userID domain.UserID, email string) error
	Confirm(ctx context.Context, email, code string) error
	Resend(ctx context.Context, email string) error
	RequestEmailChange(ctx context.Context, userID domain.UserID, email string) error
}

type PasswordRecoveryService interface {
	Forgot(ctx context.Context, email string) error
	Issue(ctx context.Context, userID domain.UserID) error
	Reset(ctx context.Context, userID domain.UserID, code, newPassword string) error
}
