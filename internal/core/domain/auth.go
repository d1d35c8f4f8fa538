package domain

import (
	"strings"
	"time"
)

// Client scopes. A client's scope is a space separated list of these.
const (
	ScopeQuery  = "query"  // ask, search, stats
	ScopeIngest = "ingest" // upload, delete, task status
	ScopeAll    = "*"
)

// AuthContext identifies the API client behind a request
type AuthContext struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// Allows reports whether the client was granted scope.
// An empty scope grants everything.
func (a *AuthContext) Allows(scope string) bool {
	if a == nil {
		return false
	}
	granted := strings.Fields(a.Scope)
	if len(granted) == 0 {
		return true
	}
	for _, g := range granted {
		if g == scope || g == ScopeAll {
			return true
		}
	}
	return false
}

// TokenRequest exchanges client credentials for an access token
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse is returned after a successful token exchange
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	ClientID  string `json:"client_id"`
	Scope     string `json:"scope"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
