package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is how long issued access tokens stay valid
const DefaultTokenTTL = time.Hour

// ClientCredential is a registered API client
type ClientCredential struct {
	ID         string
	SecretHash string // bcrypt
	Scope      string
}

// authService implements the AuthService interface
type authService struct {
	tokens   driven.TokenService
	clients  map[string]ClientCredential
	tokenTTL time.Duration
	now      func() time.Time
}

// NewAuthService creates a new AuthService for a fixed set of clients
func NewAuthService(tokens driven.TokenService, clients []ClientCredential, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	registry := make(map[string]ClientCredential, len(clients))
	for _, c := range clients {
		registry[c.ID] = c
	}
	return &authService{
		tokens:   tokens,
		clients:  registry,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// IssueToken validates client credentials and returns a signed token
func (s *authService) IssueToken(_ context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, domain.ErrInvalidInput
	}

	client, ok := s.clients[req.ClientID]
	if !ok || !s.tokens.VerifySecret(req.ClientSecret, client.SecretHash) {
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.tokens.GenerateToken(&domain.TokenClaims{
		ClientID:  client.ID,
		Scope:     client.Scope,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(_ context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	if s.now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	// clients removed from config lose access immediately
	if _, ok := s.clients[claims.ClientID]; !ok {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		ClientID: claims.ClientID,
		Scope:    claims.Scope,
	}, nil
}
