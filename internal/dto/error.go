package dto

import "time"

// ErrorResponse is the envelope every failed request receives.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
}
