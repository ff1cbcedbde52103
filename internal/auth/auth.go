// Package auth is the authentication collaborator consumed by the admin
// surface. The switch does not manage credentials itself; it only decides
// whether a presented identity carries the administrative capability.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no valid identity can be derived
// from the presented credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// RoleAdmin is the role required for directory and BIN-rule mutations.
const RoleAdmin = "admin"

// Identity is a resolved caller.
type Identity struct {
	Subject string
	Role    string
}

// Authorizer resolves bearer credentials into identities and answers
// capability checks.
type Authorizer interface {
	CurrentUser(token string) (Identity, error)
	IsAdmin(id Identity) bool
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthorizer validates HS256 tokens minted by the bank's identity
// system.
type JWTAuthorizer struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTAuthorizer builds an authorizer over a shared HS256 secret.
func NewJWTAuthorizer(secret, issuer, audience string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret), issuer: issuer, audience: audience}
}

// CurrentUser parses and validates the token, returning the embedded
// identity or ErrUnauthenticated.
func (a *JWTAuthorizer) CurrentUser(token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims := &tokenClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// IsAdmin reports whether the identity carries the admin capability.
func (a *JWTAuthorizer) IsAdmin(id Identity) bool {
	return id.Role == RoleAdmin
}
