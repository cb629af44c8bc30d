package models

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are the JWT claims issued to operator API sessions.
type OperatorClaims struct {
	jwt.RegisteredClaims
	OperatorID   uint   `json:"operator_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}
