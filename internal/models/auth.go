package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the roles carried by access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens issued by the account service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
