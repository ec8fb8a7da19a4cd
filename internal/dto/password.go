package dto

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	UserID   string `json:"userId"   validate:"required,uuid"`
	Code     string `json:"code"     validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}
