// Package auth decodes actor identities. Authentication itself happens in
// the external gateway; this package only verifies and unpacks the JWT the
// gateway minted, so handlers receive an already-authenticated actor.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// Claims carries the actor identity the gateway attached to a request.
type Claims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// RoleNames returns the claim roles as domain role names.
func (c *Claims) RoleNames() []domain.RoleName {
	out := make([]domain.RoleName, len(c.Roles))
	for i, r := range c.Roles {
		out[i] = domain.RoleName(r)
	}
	return out
}

// TokenManager verifies gateway-minted tokens. GenerateToken exists for
// local tooling and tests; the server itself never mints tokens.
type TokenManager struct {
	secret string
	issuer string
}

// NewTokenManager creates a token manager for the shared gateway secret.
func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "orgcore"
	}
	return &TokenManager{secret: secret, issuer: issuer}
}

// GenerateToken signs an actor identity token.
func (tm *TokenManager) GenerateToken(userID, tenantID string, roles []domain.RoleName, expiresIn time.Duration) (string, error) {
	if userID == "" || tenantID == "" {
		return "", fmt.Errorf("user_id and tenant_id required")
	}
	raw := make([]string, len(roles))
	for i, r := range roles {
		raw[i] = string(r)
	}
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    raw,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

// ValidateToken verifies a token and returns its claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractToken pulls the bearer token out of an Authorization header.
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
