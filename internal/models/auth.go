package models

import "github.com/golang-jwt/jwt/v5"

// TokenRequest is the identity claim a signed-in client exchanges for a
// bearer token.
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=120"`
}

// TokenResponse returns the signed token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// JWTClaims represents the bearer token payload.
type JWTClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
