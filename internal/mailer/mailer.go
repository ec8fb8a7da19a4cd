package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"authcore/internal/observability/middleware"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	SendTimeout time.Duration
}

// SMTPMailer delivers HTML email through an SMTP relay.
type SMTPMailer struct {
	from    string
	timeout time.Duration
	sender  func(*gomail.Message) error
	log     *slog.Logger
}

func NewSMTPMailer(cfg Config, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("missing SMTP host")
	}
	if cfg.Port == 0 {
		return nil, errors.New("missing SMTP port")
	}
	if cfg.From == "" {
		return nil, errors.New("missing SMTP from address")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		from:    cfg.From,
		timeout: cfg.SendTimeout,
		sender:  func(msg *gomail.Message) error { return dialer.DialAndSend(msg) },
		log:     logger.With("component", "mailer"),
	}, nil
}

// SendEmail sends a single HTML message. The SMTP exchange is bounded by the
// configured timeout and by ctx; whichever ends first aborts the wait.
func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return errors.New("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- m.sender(msg) }()

	select {
	case err := <-done:
		if err != nil {
			m.log.Error("smtp send failed", "error", err, "request_id", middleware.RequestIDFromContext(ctx))
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

// LogMailer writes emails to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{log: logger.With("component", "mailer")}
}

func (m *LogMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	m.log.InfoContext(ctx, "email not sent, no SMTP relay configured",
		"to", to,
		"subject", subject,
		"body", html,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}
