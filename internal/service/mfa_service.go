package service

import (
	"context"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
)

type MFAService interface {
	IsEnabled(user *domain.User) bool
	Verify(secret, code string, now time.Time) bool
	GenerateSecret(account string) (secret, otpauthURL string, err error)

	BeginEnrollment(ctx context.Context, userID domain.UserID) (*dto.TotpSetupResponse, error)
	ConfirmEnrollment(ctx context.Context, userID domain.UserID, code string) error
	Disable(ctx context.Context, userID domain.UserID, code string) error
}
