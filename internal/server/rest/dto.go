package rest

import "time"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	// ADMIN is never self-assigned; operators use the admin CLI.
	Role string `json:"role" validate:"omitempty,oneof=STUDENT INSTRUCTOR"`
}

type RegisterResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	// ExpiresIn is the access token lifetime in milliseconds.
	ExpiresIn int64  `json:"expiresIn"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,len=64,hexadecimal"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	Message      string `json:"message"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=512"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RevokeAllResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}

type ValidateResponse struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
}

type SessionDTO struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
}

type SessionsResponse struct {
	Sessions []SessionDTO `json:"sessions"`
}

type StatsResponse struct {
	ActiveTokens     int `json:"activeTokens"`
	TotalTokens      int `json:"totalTokens"`
	ExpiredTokens    int `json:"expiredTokens"`
	RevokedTokens    int `json:"revokedTokens"`
	MaxTokensAllowed int `json:"maxTokensAllowed"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
