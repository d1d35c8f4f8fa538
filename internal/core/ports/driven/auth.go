package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// TokenService hashes client secrets and signs access tokens.
type TokenService interface {
	HashSecret(secret string) (string, error)
	VerifySecret(secret, hash string) bool

	GenerateToken(claims *domain.TokenClaims) (string, error)
	// ParseToken returns domain.ErrTokenExpired or domain.ErrTokenInvalid
	ParseToken(token string) (*domain.TokenClaims, error)
}
