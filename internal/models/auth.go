package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// StudentLoginRequest holds a generated credential pair.
type StudentLoginRequest struct {
	UID      string `json:"uid" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// LoginResponse returns the issued token and subject info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated subject in responses.
type UserInfo struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Role        UserRole    `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID      string      `json:"user_id"`
	Role        UserRole    `json:"role"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Permissions Permissions `json:"permissions"`
	jwt.RegisteredClaims
}

// Can reports whether the subject holds perm. Administrators hold every permission
// and students hold none.
func (c *JWTClaims) Can(perm Permission) bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleEducator:
		return c.Permissions.Has(perm)
	default:
		return false
	}
}
