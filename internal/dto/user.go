package dto

import "time"

type UserResponse struct {
	ID               string     `json:"id"`
	Email            *string    `json:"email"`
	DisplayName      string     `json:"displayName"`
	AvatarURL        *string    `json:"avatarUrl,omitempty"`
	AuthProviderType string     `json:"authProviderType"`
	EmailVerifiedAt  *time.Time `json:"emailVerifiedAt,omitempty"`
	TotpEnabled      bool       `json:"totpEnabled"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type TotpSetupResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
}

type TotpCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}
