package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AuthService exchanges client credentials for bearer tokens and checks
// the tokens presented on protected routes.
type AuthService interface {
	// IssueToken fails with domain.ErrInvalidInput for missing fields and
	// domain.ErrUnauthorized for an unknown client or wrong secret.
	IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)

	// ValidateToken fails with domain.ErrTokenExpired, domain.ErrTokenInvalid,
	// or domain.ErrUnauthorized once the client is no longer configured.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
