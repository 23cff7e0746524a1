// Package auth mints and verifies identity tokens and carries the verified
// identity through request contexts.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller: a stable uid, the verified email and
// the claim flags attached to the account.
type Identity struct {
	UID    string       `json:"uid"`
	Email  string       `json:"email"`
	Claims roles.Claims `json:"claims"`
}

// Authenticated reports whether the identity names a caller.
func (i Identity) Authenticated() bool {
	return i.UID != ""
}

// Role derives the effective role from the claim flags.
func (i Identity) Role() roles.Role {
	return roles.FromClaims(i.Claims)
}

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Admin       bool   `json:"admin,omitempty"`
	MasterAdmin bool   `json:"master_admin,omitempty"`
}

// GenerateToken signs an HS256 token for id valid for validityDuration.
func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email:       id.Email,
		Admin:       id.Claims.Admin,
		MasterAdmin: id.Claims.MasterAdmin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired; any other failure yields
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		UID:   claims.Subject,
		Email: claims.Email,
		Claims: roles.Claims{
			Admin:       claims.Admin,
			MasterAdmin: claims.MasterAdmin,
		},
	}, nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity. The zero Identity
// is returned when none is present.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
