package auth

import (
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the typed shape of tokens minted by the identity
// provider. This service verifies them; it never mints customer credentials.
type AccessTokenClaims struct {
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	SessionID  string          `json:"session_id"`
	Role       enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
