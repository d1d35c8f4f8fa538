package mocks

import (
	"strconv"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.TokenService = (*MockTokenService)(nil)

// MockTokenService keeps issued claims in a table keyed by an opaque
// counter token. Secrets are their own hash. Expiry is left to the caller.
type MockTokenService struct {
	mu     sync.Mutex
	seq    int
	issued map[string]domain.TokenClaims
}

func NewMockTokenService() *MockTokenService {
	return &MockTokenService{issued: make(map[string]domain.TokenClaims)}
}

func (m *MockTokenService) HashSecret(secret string) (string, error) { return secret, nil }

func (m *MockTokenService) VerifySecret(secret, hash string) bool { return secret == hash }

func (m *MockTokenService) GenerateToken(claims *domain.TokenClaims) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	token := "mock-token-" + strconv.Itoa(m.seq)
	m.issued[token] = *claims
	return token, nil
}

func (m *MockTokenService) ParseToken(token string) (*domain.TokenClaims, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.issued[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

// Issued reports how many tokens were generated
func (m *MockTokenService) Issued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issued)
}
