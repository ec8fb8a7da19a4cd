package dto

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type EmailChangeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}
