package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the typed JWT the identity service mints for POS
// operators. This service never issues tokens, it only parses them.
type AccessTokenClaims struct {
	OperatorID uuid.UUID `json:"operator_id"`
	LocationID uuid.UUID `json:"location_id"`
	jwt.RegisteredClaims
}
