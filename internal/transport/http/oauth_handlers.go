package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authcore/internal/domain"
	"authcore/internal/oauth"
	obsmw "authcore/internal/observability/middleware"
	"authcore/internal/service"
)

const stateCookieTTL = 10 * time.Minute

func stateCookieName(p domain.ProviderType) string { return "oauth_state_" + p.String() }

func (h *Handler) oauthStart(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProviderType(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	state, err := oauth.NewState()
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	target, err := h.svc.OAuth.AuthorizationURL(provider, state)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	http.SetCookie(w, h.stateCookie(provider, state, int(stateCookieTTL.Seconds())))
	http.Redirect(w, r, target, http.StatusFound)
}

// oauthCallback always answers with a redirect to the application; failures
// travel as ?error=<code>.
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProviderType(chi.URLParam(r, "provider"))
	if err != nil {
		h.log.Info("oauth callback for unknown provider", "provider", chi.URLParam(r, "provider"),
			"request_id", obsmw.RequestIDFromContext(r.Context()))
		http.Redirect(w, r, h.svc.OAuth.ErrorRedirect(service.OAuthErrProvider), http.StatusFound)
		return
	}
	q := r.URL.Query()
	expected := ""
	if c, err := r.Cookie(stateCookieName(provider)); err == nil {
		expected = c.Value
	}
	http.SetCookie(w, h.stateCookie(provider, "", -1))

	if perr := q.Get("error"); perr != "" {
		code := service.OAuthErrProvider
		if perr == service.OAuthErrAccessDenied {
			code = service.OAuthErrAccessDenied
		}
		h.log.Info("oauth provider returned error", "provider", provider, "error", perr,
			"request_id", obsmw.RequestIDFromContext(r.Context()))
		http.Redirect(w, r, h.svc.OAuth.ErrorRedirect(code), http.StatusFound)
		return
	}
	state := q.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		h.log.Warn("oauth state mismatch", "provider", provider,
			"request_id", obsmw.RequestIDFromContext(r.Context()))
		http.Redirect(w, r, h.svc.OAuth.ErrorRedirect(service.OAuthErrInvalidState), http.StatusFound)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, h.svc.OAuth.ErrorRedirect(service.OAuthErrProvider), http.StatusFound)
		return
	}

	target, err := h.svc.OAuth.HandleCallback(r.Context(), provider, code)
	if err != nil {
		h.log.Warn("oauth callback failed", "provider", provider, "error", err,
			"request_id", obsmw.RequestIDFromContext(r.Context()),
			"trace_id", obsmw.TraceIDFromContext(r.Context()))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) stateCookie(p domain.ProviderType, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookieName(p),
		Value:    value,
		Path:     "/v1/auth/" + p.String(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
