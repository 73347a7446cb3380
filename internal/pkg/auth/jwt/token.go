package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// UserIdentityExpiration is the lifetime of a login token.
	UserIdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies tokens issued by this server.
	TokenIssuer = "roomchat"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid or expired token")

// GenerateToken signs payload with HS256, stamping issue and expiry times.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		Subject:   payload.ID,
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken validates signature, algorithm, expiry and issuer and returns the claims.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid || claims.ID == "" || !claims.VerifyIssuer(TokenIssuer, true) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
