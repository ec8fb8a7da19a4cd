package service

import "context"

type EmailService interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}
