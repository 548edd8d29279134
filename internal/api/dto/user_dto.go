package dto

import (
	"time"

	"github.com/spec-kit/jwt-auth-service/internal/domain"
)

// SignUpRequest payload for new accounts.
type SignUpRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SignInRequest payload for sign-in.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries an issued token. Clients send it back in X-AUTH-TOKEN.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

// NewUserResponse strips credentials from user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID, Username: user.Username, Name: user.Name, Roles: user.Roles}
}
