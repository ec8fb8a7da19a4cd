package dto

type LoginRequest struct {
	Email    string `json:"email"              validate:"required,email"`
	Password string `json:"password"           validate:"required"`
	TotpCode string `json:"totpCode,omitempty" validate:"omitempty,numeric,len=6"`
}

type LoginResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

type TotpStatusRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type TotpStatusResponse struct {
	Enabled bool `json:"enabled"`
}
