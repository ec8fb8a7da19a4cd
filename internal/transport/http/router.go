package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authcore/internal/observability/middleware"
	"authcore/internal/service"
)

// Services are the collaborators the gateway delegates to.
type Services struct {
	Auth          service.AuthService
	Tokens        service.TokenService
	AuthCodes     service.AuthCodeService
	Verifications service.EmailVerificationService
	Recovery      service.PasswordRecoveryService
	OAuth         service.OAuthService
	MFA           service.MFAService
}

type Options struct {
	Logger *slog.Logger
	// TrustProxy honours X-Forwarded-For / X-Real-IP for the session IP.
	TrustProxy     bool
	CORSOrigins    []string
	RateLimit      int
	RequestTimeout time.Duration
	// SecureCookies marks the OAuth state cookie Secure.
	SecureCookies bool
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
}

type Handler struct {
	svc           Services
	log           *slog.Logger
	validator     *requestValidator
	trustProxy    bool
	secureCookies bool
}

func NewRouter(svc Services, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:           svc,
		log:           logger,
		validator:     newRequestValidator(),
		trustProxy:    opts.TrustProxy,
		secureCookies: opts.SecureCookies,
	}

	r := chi.NewRouter()
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.WithRequestAndTrace(logger))
	r.Use(middleware.WithMetrics)
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(opts.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID, middleware.HeaderTraceID},
		ExposedHeaders:   []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/totp-status", h.totpStatus)
		r.Post("/register", h.register)
		r.Post("/verify-email", h.verifyEmail)
		r.Post("/resend-verify", h.resendVerify)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.Post("/exchange", h.exchange)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)
			r.Get("/me", h.me)
			r.Delete("/me", h.deleteMe)
			r.Post("/email-change", h.emailChange)
			r.Post("/totp/setup", h.totpSetup)
			r.Post("/totp/enable", h.totpEnable)
			r.Post("/totp/disable", h.totpDisable)
		})

		r.Get("/{provider}", h.oauthStart)
		r.Get("/{provider}/callback", h.oauthCallback)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("route not found", "NotFound"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed", "MethodNotAllowed"))
	})

	return r
}

func originsIfSet(in []string) []string {
	out := []string{}
	for _, o := range in {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
