package http

import (
	"net/http"

	"github.com/google/uuid"

	"authcore/internal/dto"
	"authcore/internal/netutil"
)

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) client(r *http.Request) (ip, ua string) {
	return netutil.ClientIP(r, h.trustProxy), netutil.TruncateUserAgent(r.UserAgent())
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) totpStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.TotpStatusRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.Auth.TotpStatus(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Verifications.Confirm(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}

func (h *Handler) resendVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Verifications.Resend(r.Context(), req.Email); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "if the account exists and is unverified, a new code was sent"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ip, ua := h.client(r)
	res, err := h.svc.Tokens.Refresh(r.Context(), req.RefreshToken, ip, ua)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Tokens.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exchange(w http.ResponseWriter, r *http.Request) {
	var req dto.ExchangeRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ip, ua := h.client(r)
	res, err := h.svc.AuthCodes.Exchange(r.Context(), req.Code, ip, ua)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Recovery.Forgot(r.Context(), req.Email); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "if the account exists, a reset link was sent"})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := h.validator.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, r, h.log, &ValidationError{Message: "userId must be a valid UUID"})
		return
	}
	if err := h.svc.Recovery.Reset(r.Context(), userID, req.Code, req.Password); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}
