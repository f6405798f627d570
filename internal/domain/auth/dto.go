// internal/domain/auth/dto.go
package auth

import "time"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Identity string `json:"identity" binding:"required,email"`
	Secret   string `json:"secret" binding:"required,min=8"`
}

type LoginRequest struct {
	Identity string `json:"identity" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthResponse is the shared result shape of register, login and refresh.
type AuthResponse struct {
	PrincipalID  string    `json:"principalId"`
	Name         string    `json:"name"`
	Identity     string    `json:"identity"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Roles        []string  `json:"roles"`
}
