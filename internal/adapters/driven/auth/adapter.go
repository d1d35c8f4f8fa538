// Package auth signs client access tokens as HS256 JWTs and checks
// bcrypt hashes of client secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.TokenService = (*Adapter)(nil)

const issuer = "sercha-rag"

// accessClaims is the token body. The client ID is duplicated into sub
// so generic JWT tooling shows who the token belongs to.
type accessClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Adapter implements driven.TokenService
type Adapter struct {
	key    []byte
	cost   int
	parser *jwt.Parser
}

// Option tunes an Adapter
type Option func(*Adapter)

// WithBcryptCost overrides bcrypt.DefaultCost
func WithBcryptCost(cost int) Option {
	return func(a *Adapter) { a.cost = cost }
}

// NewAdapter creates an adapter signing with secret
func NewAdapter(secret string, opts ...Option) *Adapter {
	a := &Adapter{
		key:  []byte(secret),
		cost: bcrypt.DefaultCost,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash client secret: %w", err)
	}
	return string(hash), nil
}

func (a *Adapter) VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	body := accessClaims{
		ClientID: claims.ClientID,
		Scope:    claims.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   claims.ClientID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, issuer and expiry. Only expiry is
// reported separately; every other failure is domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(token string) (*domain.TokenClaims, error) {
	var body accessClaims
	_, err := a.parser.ParseWithClaims(token, &body, func(*jwt.Token) (any, error) {
		return a.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	case body.ClientID == "":
		return nil, fmt.Errorf("%w: no client_id", domain.ErrTokenInvalid)
	}

	out := &domain.TokenClaims{
		ClientID:  body.ClientID,
		Scope:     body.Scope,
		ExpiresAt: body.ExpiresAt.Unix(),
	}
	if body.IssuedAt != nil {
		out.IssuedAt = body.IssuedAt.Unix()
	}
	return out, nil
}
