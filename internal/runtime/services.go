// Package runtime holds the model clients shared by the services.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// llmSlot lets an interface value live behind an atomic pointer
type llmSlot struct {
	svc driven.LLMService
}

// Services owns the embedding client for the life of the process, since
// the index dimension is tied to it, and a generation client that can be
// swapped or switched off while requests are in flight.
type Services struct {
	embedding driven.EmbeddingService
	llm       atomic.Pointer[llmSlot]
}

// NewServices wraps the clients. llm may be nil.
func NewServices(embedding driven.EmbeddingService, llm driven.LLMService) *Services {
	s := &Services{embedding: embedding}
	s.llm.Store(&llmSlot{svc: llm})
	return s
}

func (s *Services) EmbeddingService() driven.EmbeddingService {
	return s.embedding
}

// LLMService returns the generation client, nil when generation is off
func (s *Services) LLMService() driven.LLMService {
	return s.llm.Load().svc
}

func (s *Services) LLMConfigured() bool {
	return s.LLMService() != nil
}

// SetLLMService installs svc and closes the client it replaces
func (s *Services) SetLLMService(svc driven.LLMService) {
	old := s.llm.Swap(&llmSlot{svc: svc})
	if old.svc != nil && old.svc != svc {
		_ = old.svc.Close()
	}
}

// ValidateAndSetLLM installs svc only after it answers a ping. On failure
// svc is closed and the current client stays. A nil svc turns generation off.
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc != nil {
		if err := svc.Ping(ctx); err != nil {
			_ = svc.Close()
			return fmt.Errorf("%w: ping %s: %v", domain.ErrExternalProvider, svc.Model(), err)
		}
	}
	s.SetLLMService(svc)
	return nil
}

// Close releases both clients. Generation stays off afterwards.
func (s *Services) Close() error {
	var errs []error
	if s.embedding != nil {
		errs = append(errs, s.embedding.Close())
	}
	if old := s.llm.Swap(&llmSlot{}); old.svc != nil {
		errs = append(errs, old.svc.Close())
	}
	return errors.Join(errs...)
}
