package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CustomerID int64
	JTI        string
}

// AccessTokenClaims represents the customer token issued by the identity
// service. Only the customer id is consumed by the storefront.
type AccessTokenClaims struct {
	CustomerID int64 `json:"cid"`
	jwt.RegisteredClaims
}
