package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"authcore/internal/domain"
	"authcore/internal/dto"
	obsmw "authcore/internal/observability/middleware"
)

const (
	codeValidation   = "ValidationError"
	codeUnauthorized = "Unauthorized"
	codeInternal     = "InternalServerError"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order with errors.Is.
var errorTable = []errorMapping{
	{domain.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
	{domain.ErrInvalidAuthProvider, http.StatusUnauthorized, "InvalidAuthProvider"},
	{domain.ErrUnknownProvider, http.StatusNotFound, "UnknownProvider"},
	{domain.ErrTotpCodeRequired, http.StatusBadRequest, "TotpCodeRequired"},
	{domain.ErrInvalidTotpCode, http.StatusUnauthorized, "InvalidTotpCode"},
	{domain.ErrTotpNotEnrolled, http.StatusBadRequest, "TotpNotEnrolled"},
	{domain.ErrTotpAlreadyEnabled, http.StatusConflict, "TotpAlreadyEnabled"},
	{domain.ErrEmailNotVerified, http.StatusBadRequest, "EmailNotVerified"},
	{domain.ErrUserAlreadyExists, http.StatusConflict, "UserAlreadyExists"},
	{domain.ErrEmailAlreadyExists, http.StatusConflict, "EmailAlreadyExists"},
	{domain.ErrEmailAlreadyInUse, http.StatusConflict, "EmailAlreadyInUse"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "SessionNotFound"},
	{domain.ErrSessionRevoked, http.StatusUnauthorized, "SessionRevoked"},
	{domain.ErrInvalidRefreshToken, http.StatusUnauthorized, "InvalidRefreshToken"},
	{domain.ErrInvalidAccessToken, http.StatusUnauthorized, codeUnauthorized},
	{domain.ErrAuthorizationCodeNotFound, http.StatusNotFound, "AuthorizationCodeNotFound"},
	{domain.ErrAuthorizationCodeExpired, http.StatusBadRequest, "AuthorizationCodeExpired"},
	{domain.ErrVerificationCodeNotFound, http.StatusNotFound, "VerificationCodeNotFound"},
	{domain.ErrVerificationCodeExpired, http.StatusBadRequest, "VerificationCodeExpired"},
	{domain.ErrPasswordResetNotFound, http.StatusNotFound, "PasswordResetNotFound"},
	{domain.ErrPasswordResetExpired, http.StatusBadRequest, "PasswordResetExpired"},
}

// ValidationError reports a request that failed decoding or field validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func classify(err error) (int, string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, codeValidation, true
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, codeInternal, false
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, known := classify(err)
	message := err.Error()
	if !known {
		logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", obsmw.RequestIDFromContext(r.Context()),
			"trace_id", obsmw.TraceIDFromContext(r.Context()),
		)
		message = "internal server error"
	}
	writeJSON(w, status, errorBody(message, code))
}

func errorBody(message, code string) dto.ErrorResponse {
	return dto.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Error:     code,
	}
}
