package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PrincipalClaims is the bearer-token shape issued by the identity
// service. This service only verifies; issuance lives elsewhere.
type PrincipalClaims struct {
	Sub    int64  `json:"sub"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	UnitID int64  `json:"unit_id,omitempty"`
	jwt.RegisteredClaims
}

func NewPrincipalToken(sub int64, name, role string, unitID int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := PrincipalClaims{
		Sub:    sub,
		Name:   name,
		Role:   role,
		UnitID: unitID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"society-gate-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*PrincipalClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &PrincipalClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*PrincipalClaims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
