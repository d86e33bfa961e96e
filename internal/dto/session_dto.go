package dto

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UID           string `json:"uid,omitempty"`
	Email         string `json:"email,omitempty"`
	Anonymous     bool   `json:"anonymous"`
	Diagnostics   any    `json:"diagnostics,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
