package http

import (
	"context"
	"net/http"
	"strings"

	"authcore/internal/domain"
	"authcore/internal/dto"
	obsmw "authcore/internal/observability/middleware"
)

type userIDKey struct{}

func withUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the subject placed in ctx by the bearer middleware.
func UserIDFrom(ctx context.Context) (domain.UserID, bool) {
	id, ok := ctx.Value(userIDKey{}).(domain.UserID)
	return id, ok
}

// requireUser authenticates the request with an access token from the
// Authorization header.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if len(raw) < len("Bearer ") || !strings.EqualFold(raw[:len("Bearer ")], "bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorBody("missing bearer token", codeUnauthorized))
			return
		}
		userID, err := h.svc.Tokens.VerifyAccess(r.Context(), strings.TrimSpace(raw[len("Bearer "):]))
		if err != nil {
			h.log.Debug("bearer rejected", "error", err, "request_id", obsmw.RequestIDFromContext(r.Context()))
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid access token", codeUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, ok := UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("missing bearer token", codeUnauthorized))
	}
	return id, ok
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Auth.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emailChange(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req dto.EmailChangeRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Verifications.RequestEmailChange(r.Context(), userID, req.Email); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "verification code sent"})
}

func (h *Handler) totpSetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.svc.MFA.BeginEnrollment(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) totpEnable(w http.ResponseWriter, r *http.Request) {
	h.totpChange(w, r, "totp enabled", func(ctx context.Context, id domain.UserID, code string) error {
		return h.svc.MFA.ConfirmEnrollment(ctx, id, code)
	})
}

func (h *Handler) totpDisable(w http.ResponseWriter, r *http.Request) {
	h.totpChange(w, r, "totp disabled", func(ctx context.Context, id domain.UserID, code string) error {
		return h.svc.MFA.Disable(ctx, id, code)
	})
}

func (h *Handler) totpChange(w http.ResponseWriter, r *http.Request, done string, apply func(context.Context, domain.UserID, string) error) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req dto.TotpCodeRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := apply(r.Context(), userID, req.Code); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: done})
}
