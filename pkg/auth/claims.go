package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role labels the kind of caller behind a token.
type Role string

const (
	// RoleService marks machine callers such as the checkout service.
	RoleService Role = "service"
	// RoleOwner marks shop owners using the admin surface.
	RoleOwner Role = "owner"
	// RoleAdmin marks operators with unrestricted access.
	RoleAdmin Role = "admin"
)

// IsValid reports whether the value is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleService, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CallerID string
	Role     Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to callers.
type AccessTokenClaims struct {
	CallerID string `json:"caller_id"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
