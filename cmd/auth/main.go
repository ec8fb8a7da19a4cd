package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authcore/internal/config"
	"authcore/internal/events"
	"authcore/internal/mailer"
	"authcore/internal/oauth"
	"authcore/internal/observability/logging"
	"authcore/internal/observability/metrics"
	"authcore/internal/service"
	impl "authcore/internal/service/impl"
	"authcore/internal/store"
	httpx "authcore/internal/transport/http"
	"authcore/pkg/db"
)

const serviceName = "auth"

func main() {
	if err := run(); err != nil {
		slog.Error("auth service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	// 1) DB
	gdb, err := db.OpenGorm(db.Config{
		DSN:          cfg.DatabaseURL,
		LogSQL:       cfg.LogSQL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, logger)
	if err != nil {
		return err
	}
	st := store.New(gdb)
	if cfg.AutoMigrate {
		if err := st.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// 2) Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg, serviceName)

	// 3) Outbound collaborators
	var mail service.EmailService
	if cfg.SMTP.Host != "" {
		smtp, err := mailer.NewSMTPMailer(mailer.Config{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			From:        cfg.SMTP.From,
			SendTimeout: cfg.SMTP.SendTimeout,
		}, logger)
		if err != nil {
			return err
		}
		mail = smtp
	} else {
		logger.Warn("SMTP_HOST not set, emails are logged instead of sent")
		mail = mailer.NewLogMailer(logger)
	}
	templates, err := mailer.NewTemplates(cfg.TOTPIssuer, cfg.AppVerifyEmailURL, cfg.AppResetPasswordURL)
	if err != nil {
		return err
	}

	providers := oauth.NewRegistryFromConfig(
		oauth.ProviderConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.GoogleRedirectURI,
			Timeout:      cfg.OAuth.HTTPTimeout,
		},
		oauth.ProviderConfig{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  cfg.OAuth.GitHubRedirectURI,
			Timeout:      cfg.OAuth.HTTPTimeout,
		},
	)
	logger.Info("oauth providers configured", "providers", providers.Types())

	pub := events.NewLogPublisher(logger)

	// 4) Services
	passwords := impl.NewPasswordServicePBKDF2(cfg.PasswordIterations)
	mfa := impl.NewTOTPServiceImpl(st, cfg.TOTPIssuer, logger)
	tokens := impl.NewTokenServiceImpl(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		SigningKey: []byte(cfg.SigningKey),
	}, st, pub, logger)
	codes := impl.NewAuthCodeServiceImpl(st, tokens, cfg.AuthCodeTTL, logger)
	verifications := impl.NewEmailVerificationServiceImpl(st, mail, templates, pub, cfg.EmailVerificationTTL, logger)
	recovery := impl.NewPasswordRecoveryServiceImpl(st, passwords, mail, templates, pub, cfg.PasswordRecoveryTTL, logger)
	oauthSvc := impl.NewOAuthServiceImpl(st, providers, codes, pub, cfg.AppCallbackURL, logger)
	auth := impl.NewAuthServiceImpl(st, passwords, mfa, verifications, codes, pub, cfg.AppCallbackURL, logger)

	// 5) HTTP
	router := httpx.NewRouter(httpx.Services{
		Auth:          auth,
		Tokens:        tokens,
		AuthCodes:     codes,
		Verifications: verifications,
		Recovery:      recovery,
		OAuth:         oauthSvc,
		MFA:           mfa,
	}, httpx.Options{
		Logger:         logger,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.Environment != "dev",
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("auth service listening", "addr", srv.Addr, "issuer", cfg.Issuer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
