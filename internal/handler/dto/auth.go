package dto

import "time"

// LoginRequest signs a user in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Access   []string `json:"access"`
}

// ChangePasswordRequest replaces the password of the signed-in user.
type ChangePasswordRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	Username  string    `json:"username"`
	Access    []string  `json:"access"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UsersResponse lists account names.
type UsersResponse struct {
	Users []string `json:"users"`
}
