package ai

import (
	"context"
	"sync"

	"github.com/hiregrid/matchengine/internal/domain"
)

// serializedEmbedder funnels all provider calls through a mutex. The
// provider is a shared process-wide resource and is not assumed to be safe
// for concurrent inference; callers that fan out backfills still end up with
// serialized provider access.
type serializedEmbedder struct {
	base domain.Embedder
	mu   sync.Mutex
}

// NewSerialized wraps base so at most one Embed call is in flight at a time.
func NewSerialized(base domain.Embedder) domain.Embedder {
	if base == nil {
		return nil
	}
	return &serializedEmbedder{base: base}
}

func (s *serializedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Embed(ctx, texts)
}
