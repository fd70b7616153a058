// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for account login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100" example:"player01"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// SessionDTO carries the issued token pair
type SessionDTO struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	CreatedAt    string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Account AccountDTO `json:"account"`
	Session SessionDTO `json:"session"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
