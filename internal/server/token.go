package server

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/o1egl/paseto/v2"
	"github.com/pkg/errors"
)

// Issuer is the issuer of all tokens.
const Issuer = "starving"

// CreateJWT returns a signed JWT authenticating the given user.
func CreateJWT(signingKey []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   userID,
		ID:        uuid.Must(uuid.NewV4()).String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(signingKey)
	return signed, errors.Wrap(err, "could not sign token")
}

// CreatePASETO returns a local PASETO authenticating the given user.
func CreatePASETO(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := paseto.JSONToken{
		Issuer:     Issuer,
		Subject:    userID,
		Jti:        uuid.Must(uuid.NewV4()).String(),
		IssuedAt:   now,
		NotBefore:  now,
		Expiration: now.Add(ttl),
	}

	v, err := paseto.NewV2().Encrypt(secret, token, nil)
	return v, errors.Wrap(err, "could not encrypt token")
}
